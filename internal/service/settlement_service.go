package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaibhavdeo21/Finance-Server/internal/authz"
	"github.com/vaibhavdeo21/Finance-Server/internal/balance"
	"github.com/vaibhavdeo21/Finance-Server/internal/config"
	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

// SettlementService drives a group's payment cycle:
// OPEN → PENDING_APPROVAL → SETTLED → back to OPEN via reopen.
// State transitions go through the store's conditional-update primitives,
// so two racing callers cannot double-apply a transition.
type SettlementService struct {
	store  storage.Store
	logger *slog.Logger

	// RequestPolicy controls who may request settlement; config.ReopenAll
	// vs config.ReopenLastBatch controls how far a reopen resets.
	RequestPolicy string
	ReopenScope   string
}

// NewSettlementService creates a SettlementService with the given policy
// configuration.
func NewSettlementService(store storage.Store, cfg config.Config, logger *slog.Logger) *SettlementService {
	return &SettlementService{
		store:         store,
		logger:        logger,
		RequestPolicy: cfg.SettlementRequestPolicy,
		ReopenScope:   cfg.ReopenScope,
	}
}

// Request flags the group as pending approval on behalf of the caller and
// marks the caller's member entry as requested. Any member may request
// under the any-member policy; the debtor-only policy additionally
// requires the caller to hold a negative net balance.
func (s *SettlementService) Request(ctx context.Context, caller Caller, groupID string) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email,
		models.RoleAdmin, models.RoleManager, models.RoleViewer); err != nil {
		return err
	}

	if s.RequestPolicy == config.RequestDebtorOnly {
		net, err := s.netBalance(ctx, groupID, caller.Email)
		if err != nil {
			return err
		}
		if !net.IsNegative() {
			return ErrNotDebtor
		}
	}

	if err := s.store.MarkSettlementRequested(ctx, groupID, caller.Email, time.Now().Unix()); err != nil {
		return err
	}
	if err := s.store.SetMemberSettlementStatus(ctx, groupID, caller.Email, models.SettlementRequested); err != nil {
		return err
	}

	s.logger.Info("settlement requested", "group_id", groupID, "by", caller.Email)
	return nil
}

// ApproveMember confirms one member's settlement. Only a member currently
// holding a positive net balance (someone owed money) or the group owner
// can confirm receipt; confirming yourself is rejected unless you are the
// owner.
func (s *SettlementService) ApproveMember(ctx context.Context, caller Caller, groupID, targetEmail string) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email,
		models.RoleAdmin, models.RoleManager, models.RoleViewer); err != nil {
		return err
	}

	target := models.NormalizeEmail(targetEmail)
	if group.MemberByEmail(target) == nil {
		return storage.ErrNotFound
	}

	isOwner := group.IsOwner(caller.ID, caller.Email)
	if target == models.NormalizeEmail(caller.Email) && !isOwner {
		return ErrSelfApproval
	}
	if !isOwner {
		net, err := s.netBalance(ctx, groupID, caller.Email)
		if err != nil {
			return err
		}
		if !net.IsPositive() {
			return ErrNotCreditor
		}
	}

	if err := s.store.SetMemberSettlementStatus(ctx, groupID, target, models.SettlementConfirmed); err != nil {
		return err
	}

	s.logger.Info("member settlement approved", "group_id", groupID, "member", target, "by", caller.Email)
	return nil
}

// Confirm closes the settlement cycle: every unsettled expense is stamped
// with a fresh shared batch ID, the settler and a timestamp, then the
// group flips to paid and all member sub-states reset. Requires the admin
// or manager group role. A group with zero unsettled expenses confirms as
// a no-op success.
//
// Expenses are updated before group status; both statements are
// idempotent, so a retry after a partial failure converges.
func (s *SettlementService) Confirm(ctx context.Context, caller Caller, groupID string) (string, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return "", err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email,
		models.RoleAdmin, models.RoleManager); err != nil {
		return "", err
	}

	batchID := uuid.New().String()
	now := time.Now().Unix()

	settled, err := s.store.SettleBatch(ctx, groupID, batchID, caller.Email, now)
	if err != nil {
		return "", err
	}
	if err := s.store.MarkSettled(ctx, groupID, now); err != nil {
		return "", err
	}
	if err := s.store.ResetMemberSettlementStatuses(ctx, groupID); err != nil {
		return "", err
	}

	if settled == 0 {
		// Nothing was open; the confirm is still a success.
		s.logger.Info("settlement confirmed with no open expenses", "group_id", groupID, "by", caller.Email)
		return "", nil
	}

	s.logger.Info("settlement confirmed",
		"group_id", groupID,
		"batch_id", batchID,
		"expenses", settled,
		"by", caller.Email,
	)
	return batchID, nil
}

// Reopen resets the group to OPEN. Depending on the configured scope this
// reopens every expense in the group or only the most recent settlement
// batch; settlement provenance is cleared either way and all member
// sub-states reset. Requires the admin or manager group role.
func (s *SettlementService) Reopen(ctx context.Context, caller Caller, groupID string) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email,
		models.RoleAdmin, models.RoleManager); err != nil {
		return err
	}

	if s.ReopenScope == config.ReopenLastBatch {
		batchID, err := s.store.LatestBatchID(ctx, groupID)
		if err != nil {
			return err
		}
		if batchID != "" {
			if err := s.store.ReopenBatch(ctx, groupID, batchID); err != nil {
				return err
			}
		}
	} else {
		if err := s.store.ReopenAll(ctx, groupID); err != nil {
			return err
		}
	}

	if err := s.store.MarkReopened(ctx, groupID, time.Now().Unix()); err != nil {
		return err
	}
	if err := s.store.ResetMemberSettlementStatuses(ctx, groupID); err != nil {
		return err
	}

	s.logger.Info("group reopened", "group_id", groupID, "scope", s.ReopenScope, "by", caller.Email)
	return nil
}

// LastSettled returns the group's most recent settlement timestamp, the
// only retained audit signal. Any member may read it.
func (s *SettlementService) LastSettled(ctx context.Context, caller Caller, groupID string) (int64, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email,
		models.RoleAdmin, models.RoleManager, models.RoleViewer); err != nil {
		return 0, err
	}
	return s.store.LastSettled(ctx, groupID)
}

func (s *SettlementService) netBalance(ctx context.Context, groupID, email string) (decimal.Decimal, error) {
	expenses, err := s.store.ListUnsettledByGroup(ctx, groupID)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Of(balance.Compute(expenses), email), nil
}
