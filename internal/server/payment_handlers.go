package server

import (
	"io"
	"net/http"

	"github.com/vaibhavdeo21/Finance-Server/internal/service"
)

type createOrderRequest struct {
	Credits int `json:"credits"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	order, err := s.paymentSvc.CreateOrder(r.Context(), callerFrom(r), req.Credits)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"orderId":  order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"receipt":  order.Receipt,
	})
}

func (s *Server) handleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	sub, err := s.paymentSvc.SubscriptionStatus(r.Context(), callerFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if sub == nil {
		writeJSON(w, http.StatusOK, map[string]any{"subscription": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subscription": map[string]string{
			"planId": sub.PlanID,
			"status": sub.Status,
		},
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, service.ErrInvalidInput)
		return
	}
	signature := r.Header.Get("X-Razorpay-Signature")
	if err := s.paymentSvc.HandleWebhook(r.Context(), body, signature); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
