package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

const userColumns = "id, email, name, password_hash, role, admin_id, credits, sub_plan_id, sub_provider_id, sub_status, created_at"

// CreateUser persists a new user to the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}
	user.Email = models.NormalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = models.RoleViewer
	}

	var planID, providerID, status string
	if user.Subscription != nil {
		planID = user.Subscription.PlanID
		providerID = user.Subscription.ProviderSubID
		status = user.Subscription.Status
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Email, user.Name, user.PasswordHash, user.Role,
		user.AdminID, user.Credits, planID, providerID, status, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by normalized email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", models.NormalizeEmail(email))
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where, arg)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUsersByEmails batch-resolves users keyed by normalized email.
func (s *SQLiteStore) GetUsersByEmails(ctx context.Context, emails []string) (map[string]*models.User, error) {
	result := make(map[string]*models.User)
	if len(emails) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(emails))
	args := make([]any, len(emails))
	for i, e := range emails {
		placeholders[i] = "?"
		args[i] = models.NormalizeEmail(e)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email IN ("+strings.Join(placeholders, ", ")+")",
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result[user.Email] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return result, nil
}

// ListUsersByAdminID returns all accounts provisioned under an admin.
func (s *SQLiteStore) ListUsersByAdminID(ctx context.Context, adminID string) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE admin_id = ? ORDER BY created_at", adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// UpdateUser updates name, role and admin reference.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET name = ?, role = ?, admin_id = ? WHERE id = ?",
		user.Name, user.Role, user.AdminID, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(res)
}

// DeleteUser removes a user account.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRow(res)
}

// ConsumeCredit atomically decrements the credit counter. The conditional
// predicate is the serialization point: two concurrent consumers of a
// single remaining credit cannot both succeed.
func (s *SQLiteStore) ConsumeCredit(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET credits = credits - 1 WHERE id = ? AND credits > 0", userID)
	if err != nil {
		return fmt.Errorf("failed to consume credit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetUserByID(ctx, userID); err != nil {
			return err
		}
		return storage.ErrNoCredits
	}
	return nil
}

// GrantCredits atomically adds credits to the user's counter.
func (s *SQLiteStore) GrantCredits(ctx context.Context, userID string, credits int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET credits = credits + ? WHERE id = ?", credits, userID)
	if err != nil {
		return fmt.Errorf("failed to grant credits: %w", err)
	}
	return requireRow(res)
}

// UpdateSubscription replaces the user's subscription record.
func (s *SQLiteStore) UpdateSubscription(ctx context.Context, userID string, sub *models.Subscription) error {
	var planID, providerID, status string
	if sub != nil {
		planID = sub.PlanID
		providerID = sub.ProviderSubID
		status = sub.Status
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET sub_plan_id = ?, sub_provider_id = ?, sub_status = ? WHERE id = ?",
		planID, providerID, status, userID)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var planID, providerID, status string
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&user.Role, &user.AdminID, &user.Credits,
		&planID, &providerID, &status, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	if planID != "" || providerID != "" || status != "" {
		user.Subscription = &models.Subscription{
			PlanID:        planID,
			ProviderSubID: providerID,
			Status:        status,
		}
	}
	return user, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
