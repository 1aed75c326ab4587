package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vaibhavdeo21/Finance-Server/internal/service"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

type createGroupRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	MembersEmail []string `json:"membersEmail"`
	Thumbnail    string   `json:"thumbnail"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	group, err := s.groupSvc.CreateGroup(r.Context(), callerFrom(r), service.CreateGroupInput{
		Name:         req.Name,
		Description:  req.Description,
		MembersEmail: req.MembersEmail,
		Thumbnail:    req.Thumbnail,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sort := storage.SortNewestFirst
	if r.URL.Query().Get("sortBy") == "oldest" {
		sort = storage.SortOldestFirst
	}

	result, err := s.groupSvc.ListGroups(r.Context(), callerFrom(r), page, limit, sort)
	if err != nil {
		writeError(w, err)
		return
	}

	totalPages := (result.TotalItems + result.PerPage - 1) / result.PerPage
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": result.Groups,
		"pagination": map[string]int{
			"totalItems":   result.TotalItems,
			"totalPages":   totalPages,
			"currentPage":  result.Page,
			"itemsPerPage": result.PerPage,
		},
	})
}

func (s *Server) handleGroupsByStatus(w http.ResponseWriter, r *http.Request) {
	isPaid := r.URL.Query().Get("isPaid") == "true"
	groups, err := s.groupSvc.ListGroupsByPaymentStatus(r.Context(), callerFrom(r), isPaid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groupSvc.GetGroup(r.Context(), callerFrom(r), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	group, err := s.groupSvc.UpdateGroup(r.Context(), callerFrom(r), chi.URLParam(r, "groupID"), service.UpdateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.groupSvc.DeleteGroup(r.Context(), callerFrom(r), chi.URLParam(r, "groupID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "group deleted"})
}

type membersRequest struct {
	Emails []string `json:"emails"`
	Email  string   `json:"email"`
	Role   string   `json:"role"`
}

func (s *Server) handleAddMembers(w http.ResponseWriter, r *http.Request) {
	var req membersRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	group, err := s.groupSvc.AddMembers(r.Context(), callerFrom(r), chi.URLParam(r, "groupID"), req.Emails)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	var req membersRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	group, err := s.groupSvc.RemoveMember(r.Context(), callerFrom(r), chi.URLParam(r, "groupID"), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	var req membersRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	group, err := s.groupSvc.ChangeMemberRole(r.Context(), callerFrom(r), chi.URLParam(r, "groupID"), req.Email, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Budget decimal.Decimal `json:"budget"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.groupSvc.UpdateBudget(r.Context(), callerFrom(r), chi.URLParam(r, "groupID"), req.Budget); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "budget updated"})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	lastSettled, err := s.settlementSvc.LastSettled(r.Context(), callerFrom(r), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"lastSettled": lastSettled})
}
