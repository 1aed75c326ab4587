package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vaibhavdeo21/Finance-Server/internal/auth"
	"github.com/vaibhavdeo21/Finance-Server/internal/authz"
	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/notify"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

// RbacService provisions and manages user accounts within an admin's
// hierarchy. This is the account-level role plane, independent of any
// group membership.
type RbacService struct {
	store    storage.UserStore
	authz    *authz.Authorizer
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewRbacService creates a new RbacService.
func NewRbacService(store storage.UserStore, az *authz.Authorizer, notifier notify.Notifier, logger *slog.Logger) *RbacService {
	return &RbacService{store: store, authz: az, notifier: notifier, logger: logger}
}

// CreateUser provisions an account under the caller's hierarchy with a
// generated temporary password, emailed to the new user best-effort.
func (s *RbacService) CreateUser(ctx context.Context, caller Caller, name, email, role string) (*models.User, error) {
	if err := s.authz.Can(caller.Role, models.ActionUserCreate); err != nil {
		return nil, err
	}
	if name == "" || email == "" {
		return nil, validationErr("name and email are required")
	}
	if !models.ValidRole(role) {
		return nil, validationErr(fmt.Sprintf("unknown role %q", role))
	}

	tempPassword, err := auth.GenerateTemporaryPassword(8)
	if err != nil {
		return nil, err
	}
	digest, err := auth.HashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        models.NormalizeEmail(email),
		Name:         name,
		PasswordHash: digest,
		Role:         role,
		AdminID:      caller.ID,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	// Delivery is best-effort; a failed email must not fail provisioning.
	body := fmt.Sprintf(
		"Hello %s,\n\nYour account has been created.\nLogin with:\nEmail: %s\nPassword: %s\n\nPlease change your password after logging in.",
		name, user.Email, tempPassword)
	if err := s.notifier.Send(ctx, user.Email, "Welcome to Expense App - Your Credentials", body); err != nil {
		s.logger.Warn("welcome email failed", "user_id", user.ID, "error", err)
	}

	s.logger.Info("user provisioned", "user_id", user.ID, "role", role, "admin_id", caller.ID)
	return user, nil
}

// UpdateUser changes the name and role of an account in the caller's
// hierarchy.
func (s *RbacService) UpdateUser(ctx context.Context, caller Caller, userID, name, role string) (*models.User, error) {
	if err := s.authz.Can(caller.Role, models.ActionUserUpdate); err != nil {
		return nil, err
	}
	if !models.ValidRole(role) {
		return nil, validationErr(fmt.Sprintf("unknown role %q", role))
	}

	user, err := s.requireSubordinate(ctx, caller, userID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Role = role
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account from the caller's hierarchy.
func (s *RbacService) DeleteUser(ctx context.Context, caller Caller, userID string) error {
	if err := s.authz.Can(caller.Role, models.ActionUserDelete); err != nil {
		return err
	}
	if _, err := s.requireSubordinate(ctx, caller, userID); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", userID, "by", caller.ID)
	return nil
}

// ListUsers returns the accounts provisioned under the caller.
func (s *RbacService) ListUsers(ctx context.Context, caller Caller) ([]*models.User, error) {
	if err := s.authz.Can(caller.Role, models.ActionUserView); err != nil {
		return nil, err
	}
	return s.store.ListUsersByAdminID(ctx, caller.ID)
}

// requireSubordinate loads the target and verifies it belongs to the
// caller's hierarchy. Cross-tenant access is forbidden, not hidden: the
// static permission check already passed.
func (s *RbacService) requireSubordinate(ctx context.Context, caller Caller, userID string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.AdminID != caller.ID {
		return nil, authz.ErrForbidden
	}
	return user, nil
}
