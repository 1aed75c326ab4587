package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaibhavdeo21/Finance-Server/internal/authz"
	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

// GroupService implements group lifecycle and membership management.
type GroupService struct {
	store  storage.Store
	authz  *authz.Authorizer
	logger *slog.Logger
}

// NewGroupService creates a new GroupService.
func NewGroupService(store storage.Store, az *authz.Authorizer, logger *slog.Logger) *GroupService {
	return &GroupService{store: store, authz: az, logger: logger}
}

// CreateGroupInput carries the caller-provided fields for a new group.
type CreateGroupInput struct {
	Name         string
	Description  string
	MembersEmail []string
	Thumbnail    string
}

// CreateGroup creates a group owned by the caller, consuming one credit.
// The credit is decremented with a conditional update before the group is
// persisted, so a zero-credit caller is rejected before any record exists;
// if the insert fails afterwards the credit is refunded.
func (s *GroupService) CreateGroup(ctx context.Context, caller Caller, in CreateGroupInput) (*models.Group, error) {
	if err := s.authz.Can(caller.Role, models.ActionGroupCreate); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, validationErr("group name is required")
	}

	if err := s.store.ConsumeCredit(ctx, caller.ID); err != nil {
		if errors.Is(err, storage.ErrNoCredits) {
			return nil, ErrInsufficientCredits
		}
		return nil, err
	}

	ownerEmail := models.NormalizeEmail(caller.Email)
	members := []models.Member{{
		Email: ownerEmail,
		Role:  models.RoleAdmin,
	}}
	for _, email := range normalizeEmails(in.MembersEmail) {
		if email == ownerEmail {
			continue
		}
		members = append(members, models.Member{Email: email, Role: models.RoleViewer})
	}

	group := &models.Group{
		Name:        in.Name,
		Description: in.Description,
		AdminEmail:  ownerEmail,
		AdminID:     caller.ID,
		Members:     members,
		Thumbnail:   in.Thumbnail,
		PaymentStatus: models.PaymentStatus{
			Currency: "INR",
			Date:     time.Now().Unix(),
		},
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		s.logger.Error("group creation failed", "admin", ownerEmail, "error", err)
		// Give the consumed credit back; the group was never persisted.
		if rerr := s.store.GrantCredits(ctx, caller.ID, 1); rerr != nil {
			s.logger.Error("credit refund failed", "user_id", caller.ID, "error", rerr)
		}
		return nil, err
	}

	s.logger.Info("group created", "group_id", group.ID, "admin", ownerEmail, "members", len(group.Members))
	return group, nil
}

// UpdateGroupInput carries the mutable group fields.
type UpdateGroupInput struct {
	Name        string
	Description string
	Thumbnail   string
}

// UpdateGroup updates group content. Requires the admin or manager group
// role, re-resolved from current state.
func (s *GroupService) UpdateGroup(ctx context.Context, caller Caller, groupID string, in UpdateGroupInput) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email, models.RoleAdmin, models.RoleManager); err != nil {
		return nil, err
	}

	if in.Name != "" {
		group.Name = in.Name
	}
	group.Description = in.Description
	if in.Thumbnail != "" {
		group.Thumbnail = in.Thumbnail
	}

	if err := s.store.UpdateGroup(ctx, group); err != nil {
		return nil, err
	}
	return s.store.GetGroup(ctx, group.ID)
}

// DeleteGroup removes a group and cascades its expenses. Only the owning
// admin may delete.
func (s *GroupService) DeleteGroup(ctx context.Context, caller Caller, groupID string) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsOwner(caller.ID, caller.Email) {
		return authz.ErrForbidden
	}

	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return err
	}
	s.logger.Info("group deleted", "group_id", groupID, "by", caller.Email)
	return nil
}

// AddMembers adds members to a group. Idempotent: already-present emails
// (case-insensitively) are no-ops. New members join as viewers.
func (s *GroupService) AddMembers(ctx context.Context, caller Caller, groupID string, emails []string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email, models.RoleAdmin, models.RoleManager); err != nil {
		return nil, err
	}

	var members []models.Member
	for _, email := range normalizeEmails(emails) {
		members = append(members, models.Member{Email: email, Role: models.RoleViewer})
	}
	if err := s.store.AddMembers(ctx, groupID, members); err != nil {
		return nil, err
	}
	return s.store.GetGroup(ctx, groupID)
}

// RemoveMember removes a member from a group. Removing an absent email is
// a no-op; removing the owning admin is rejected.
func (s *GroupService) RemoveMember(ctx context.Context, caller Caller, groupID, email string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email, models.RoleAdmin, models.RoleManager); err != nil {
		return nil, err
	}
	if models.NormalizeEmail(email) == models.NormalizeEmail(group.AdminEmail) {
		return nil, ErrOwnerImmutable
	}

	if err := s.store.RemoveMember(ctx, groupID, email); err != nil {
		return nil, err
	}
	return s.store.GetGroup(ctx, groupID)
}

// ChangeMemberRole sets a member's group-level role. Only the group admin
// may change roles, and the owner's admin role is immutable.
func (s *GroupService) ChangeMemberRole(ctx context.Context, caller Caller, groupID, email, role string) (*models.Group, error) {
	if !models.ValidRole(role) {
		return nil, validationErr(fmt.Sprintf("unknown role %q", role))
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email, models.RoleAdmin); err != nil {
		return nil, err
	}
	if models.NormalizeEmail(email) == models.NormalizeEmail(group.AdminEmail) {
		return nil, ErrOwnerImmutable
	}

	if err := s.store.SetMemberRole(ctx, groupID, email, role); err != nil {
		return nil, err
	}
	return s.store.GetGroup(ctx, groupID)
}

// UpdateBudget sets the group's budget goal. Admin or manager role.
func (s *GroupService) UpdateBudget(ctx context.Context, caller Caller, groupID string, budget decimal.Decimal) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email, models.RoleAdmin, models.RoleManager); err != nil {
		return err
	}
	if budget.IsNegative() {
		return validationErr("budget goal cannot be negative")
	}
	return s.store.UpdateBudget(ctx, groupID, budget)
}

// GetGroup returns a group the caller can view (any member).
func (s *GroupService) GetGroup(ctx context.Context, caller Caller, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email,
		models.RoleAdmin, models.RoleManager, models.RoleViewer); err != nil {
		return nil, err
	}
	return group, nil
}

// GroupPage is one page of a group listing.
type GroupPage struct {
	Groups     []*models.Group
	TotalItems int
	Page       int
	PerPage    int
}

// ListGroups returns the caller's groups, paginated. An account-level
// admin additionally sees every group owned by users within their
// hierarchy.
func (s *GroupService) ListGroups(ctx context.Context, caller Caller, page, limit int, sort storage.SortOrder) (*GroupPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	var ownerIDs []string
	if caller.Role == models.RoleAdmin {
		ownerIDs = append(ownerIDs, caller.ID)
		subordinates, err := s.store.ListUsersByAdminID(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		for _, u := range subordinates {
			ownerIDs = append(ownerIDs, u.ID)
		}
	}

	groups, total, err := s.store.ListGroupsForUser(ctx, caller.Email, ownerIDs, storage.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
		Sort:   sort,
	})
	if err != nil {
		return nil, err
	}

	return &GroupPage{Groups: groups, TotalItems: total, Page: page, PerPage: limit}, nil
}

// ListGroupsByPaymentStatus filters groups by settled state.
func (s *GroupService) ListGroupsByPaymentStatus(ctx context.Context, caller Caller, isPaid bool) ([]*models.Group, error) {
	if err := s.authz.Can(caller.Role, models.ActionGroupView); err != nil {
		return nil, err
	}
	return s.store.ListGroupsByPaymentStatus(ctx, isPaid)
}
