package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vaibhavdeo21/Finance-Server/internal/service"
)

type splitRequest struct {
	Email  string          `json:"email"`
	Amount decimal.Decimal `json:"amount"`
}

type addExpenseRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	PayerEmail  string          `json:"payerEmail"`
	Splits      []splitRequest  `json:"splits"`
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req addExpenseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	in := service.AddExpenseInput{
		GroupID:     chi.URLParam(r, "groupID"),
		Description: req.Description,
		Amount:      req.Amount,
		PayerEmail:  req.PayerEmail,
	}
	for _, split := range req.Splits {
		in.Splits = append(in.Splits, service.SplitInput{Email: split.Email, Amount: split.Amount})
	}

	expense, err := s.expenseSvc.AddExpense(r.Context(), callerFrom(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenseSvc.ListGroupExpenses(r.Context(), callerFrom(r), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleGroupSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.expenseSvc.GroupSummary(r.Context(), callerFrom(r), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}

	balances := make([]balanceView, 0, len(summary))
	for _, b := range summary {
		balances = append(balances, balanceView{Email: b.Email, Name: b.Name, Balance: b.Balance})
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": balances})
}
