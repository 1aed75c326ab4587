package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleRequestSettlement(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	if err := s.settlementSvc.Request(r.Context(), callerFrom(r), groupID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pending_approval"})
}

type approveMemberRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleApproveMember(w http.ResponseWriter, r *http.Request) {
	var req approveMemberRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	groupID := chi.URLParam(r, "groupID")
	if err := s.settlementSvc.ApproveMember(r.Context(), callerFrom(r), groupID, req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (s *Server) handleConfirmSettlement(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	batchID, err := s.settlementSvc.Confirm(r.Context(), callerFrom(r), groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]string{"status": "settled"}
	if batchID != "" {
		resp["batchId"] = batchID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReopenGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	if err := s.settlementSvc.Reopen(r.Context(), callerFrom(r), groupID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "open"})
}
