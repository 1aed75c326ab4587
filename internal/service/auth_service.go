package service

import (
	"context"
	"log/slog"

	"github.com/vaibhavdeo21/Finance-Server/internal/auth"
	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

// AuthService handles registration, login and current-user lookup.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Register creates a new user account and returns the user with a signed
// session token.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*models.User, string, error) {
	if email == "" || name == "" {
		return nil, "", validationErr("name and email are required")
	}

	user, err := s.authenticator.Register(ctx, email, name, password)
	if err != nil {
		s.logger.Warn("registration failed", "email", models.NormalizeEmail(email), "error", err)
		return nil, "", err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("failed to generate token", "user_id", user.ID, "error", err)
		return nil, "", err
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, token, nil
}

// Login authenticates a user and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if email == "" || password == "" {
		return nil, "", validationErr("email and password are required")
	}

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("login failed", "email", models.NormalizeEmail(email))
		return nil, "", err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("failed to generate token", "user_id", user.ID, "error", err)
		return nil, "", err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)
	return user, token, nil
}

// CurrentUser returns the full account record for the authenticated
// caller.
func (s *AuthService) CurrentUser(ctx context.Context, caller Caller) (*models.User, error) {
	return s.users.GetUserByID(ctx, caller.ID)
}

// UpdateProfile changes the caller's display name. Email, role and
// credits are not editable through the profile.
func (s *AuthService) UpdateProfile(ctx context.Context, caller Caller, name string) (*models.User, error) {
	if name == "" {
		return nil, validationErr("name is required")
	}

	user, err := s.users.GetUserByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", "user_id", user.ID)
	return user, nil
}
