package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vaibhavdeo21/Finance-Server/internal/auth"
	"github.com/vaibhavdeo21/Finance-Server/internal/authz"
	"github.com/vaibhavdeo21/Finance-Server/internal/middleware"
	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/payments"
	"github.com/vaibhavdeo21/Finance-Server/internal/service"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

func callerFrom(r *http.Request) service.Caller {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		return service.Caller{}
	}
	return service.Caller{
		ID:      claims.UserID,
		Email:   claims.Email,
		Role:    claims.Role,
		AdminID: claims.AdminID,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return service.ErrInvalidInput
	}
	return nil
}

// writeError maps the error taxonomy onto transport status codes.
// Authorization failures stay distinct from validation and not-found.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrSplitMismatch),
		errors.Is(err, service.ErrInsufficientCredits),
		errors.Is(err, service.ErrOwnerImmutable),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, payments.ErrInvalidPack),
		errors.Is(err, payments.ErrBadSignature):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, authz.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, authz.ErrForbidden),
		errors.Is(err, service.ErrSelfApproval),
		errors.Is(err, service.ErrNotCreditor),
		errors.Is(err, service.ErrNotDebtor):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, storage.ErrConflict),
		errors.Is(err, storage.ErrStateMismatch):
		status = http.StatusConflict
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("internal error", "error", err)
		message = "internal server error"
	}
	writeJSON(w, status, map[string]string{"message": message})
}

// userView is the wire shape of a user; the credential hash never leaves
// the server.
type userView struct {
	ID           string               `json:"id"`
	Email        string               `json:"email"`
	Name         string               `json:"name"`
	Role         string               `json:"role"`
	AdminID      string               `json:"adminId,omitempty"`
	Credits      int                  `json:"credits"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
	CreatedAt    int64                `json:"createdAt"`
}

func toUserView(u *models.User) userView {
	return userView{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		AdminID:      u.AdminID,
		Credits:      u.Credits,
		Subscription: u.Subscription,
		CreatedAt:    u.CreatedAt,
	}
}

type balanceView struct {
	Email   string          `json:"email"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}
