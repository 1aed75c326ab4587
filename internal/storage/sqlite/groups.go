package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

const groupColumns = "id, name, description, admin_email, admin_id, thumbnail, budget_goal, ps_amount, ps_currency, ps_date, is_paid, is_pending_approval, requested_by, created_at"

// CreateGroup persists a new group with its members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	group.AdminEmail = models.NormalizeEmail(group.AdminEmail)
	if group.PaymentStatus.Currency == "" {
		group.PaymentStatus.Currency = "INR"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ps := group.PaymentStatus
	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups ("+groupColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		group.ID, group.Name, group.Description, group.AdminEmail, group.AdminID,
		group.Thumbnail, group.BudgetGoal.String(),
		ps.Amount.String(), ps.Currency, ps.Date,
		boolToInt(ps.IsPaid), boolToInt(ps.IsPendingApproval), ps.RequestedBy,
		group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i := range group.Members {
		m := &group.Members[i]
		m.Email = models.NormalizeEmail(m.Email)
		if m.Role == "" {
			m.Role = models.RoleViewer
		}
		if m.JoinedAt == 0 {
			m.JoinedAt = group.CreatedAt
		}
		if m.SettlementStatus == "" {
			m.SettlementStatus = models.SettlementNone
		}
		// INSERT OR IGNORE de-duplicates case-folded input emails.
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, email, role, joined_at, settlement_status) VALUES (?, ?, ?, ?, ?)",
			group.ID, m.Email, m.Role, m.JoinedAt, m.SettlementStatus,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	reloaded, err := s.GetGroup(ctx, group.ID)
	if err != nil {
		return err
	}
	*group = *reloaded
	return nil
}

// GetGroup retrieves a group by ID, members included.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE id = ?", id)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if err := s.loadMembers(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *SQLiteStore) loadMembers(ctx context.Context, group *models.Group) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT email, role, joined_at, settlement_status FROM group_members WHERE group_id = ? ORDER BY joined_at, email",
		group.ID)
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	group.Members = nil
	group.MembersEmail = nil
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.Email, &m.Role, &m.JoinedAt, &m.SettlementStatus); err != nil {
			return fmt.Errorf("failed to scan member: %w", err)
		}
		group.Members = append(group.Members, m)
		group.MembersEmail = append(group.MembersEmail, m.Email)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate members: %w", err)
	}
	return nil
}

// UpdateGroup updates name, description and thumbnail. Payment status
// columns only move through the conditional transition methods, so a
// stale group snapshot cannot roll back a concurrent settlement.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE groups SET name = ?, description = ?, thumbnail = ? WHERE id = ?",
		group.Name, group.Description, group.Thumbnail, group.ID)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return requireRow(res)
}

// UpdateBudget sets the group's budget goal.
func (s *SQLiteStore) UpdateBudget(ctx context.Context, groupID string, budget decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE groups SET budget_goal = ? WHERE id = ?", budget.String(), groupID)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	return requireRow(res)
}

// DeleteGroup removes a group; members and expenses cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return requireRow(res)
}

// AddMembers adds members idempotently. Already-present emails keep their
// existing role and settlement status.
func (s *SQLiteStore) AddMembers(ctx context.Context, groupID string, members []models.Member) error {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, m := range members {
		email := models.NormalizeEmail(m.Email)
		if email == "" {
			continue
		}
		role := m.Role
		if role == "" {
			role = models.RoleViewer
		}
		joined := m.JoinedAt
		if joined == 0 {
			joined = now
		}
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, email, role, joined_at, settlement_status) VALUES (?, ?, ?, ?, ?)",
			groupID, email, role, joined, models.SettlementNone,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveMember removes a member idempotently.
func (s *SQLiteStore) RemoveMember(ctx context.Context, groupID, email string) error {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND email = ?",
		groupID, models.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// SetMemberRole changes one member's group-level role.
func (s *SQLiteStore) SetMemberRole(ctx context.Context, groupID, email, role string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE group_members SET role = ? WHERE group_id = ? AND email = ?",
		role, groupID, models.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to set member role: %w", err)
	}
	return requireRow(res)
}

// SetMemberSettlementStatus sets one member's settlement sub-state.
func (s *SQLiteStore) SetMemberSettlementStatus(ctx context.Context, groupID, email, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE group_members SET settlement_status = ? WHERE group_id = ? AND email = ?",
		status, groupID, models.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to set settlement status: %w", err)
	}
	return requireRow(res)
}

// ResetMemberSettlementStatuses resets every member to none.
func (s *SQLiteStore) ResetMemberSettlementStatuses(ctx context.Context, groupID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE group_members SET settlement_status = ? WHERE group_id = ?",
		models.SettlementNone, groupID)
	if err != nil {
		return fmt.Errorf("failed to reset settlement statuses: %w", err)
	}
	return nil
}

// ListGroupsForUser returns groups where the email is a member or the group
// is owned by one of ownerIDs, paginated and sorted by creation time.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, email string, ownerIDs []string, opts storage.ListOptions) ([]*models.Group, int, error) {
	email = models.NormalizeEmail(email)

	where := "id IN (SELECT group_id FROM group_members WHERE email = ?)"
	args := []any{email}
	if len(ownerIDs) > 0 {
		placeholders := make([]string, len(ownerIDs))
		for i, id := range ownerIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where += " OR admin_id IN (" + strings.Join(placeholders, ", ") + ")"
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM groups WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count groups: %w", err)
	}

	order := "created_at DESC"
	if opts.Sort == storage.SortOldestFirst {
		order = "created_at ASC"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := "SELECT " + groupColumns + " FROM groups WHERE " + where +
		" ORDER BY " + order + " LIMIT ? OFFSET ?"
	args = append(args, limit, opts.Offset)

	groups, err := s.queryGroups(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

// ListGroupsByPaymentStatus filters groups by the IsPaid flag.
func (s *SQLiteStore) ListGroupsByPaymentStatus(ctx context.Context, isPaid bool) ([]*models.Group, error) {
	return s.queryGroups(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE is_paid = ? ORDER BY created_at DESC",
		boolToInt(isPaid))
}

func (s *SQLiteStore) queryGroups(ctx context.Context, query string, args ...any) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	for _, group := range groups {
		if err := s.loadMembers(ctx, group); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// MarkSettlementRequested conditionally flags the group as pending
// approval. The is_paid predicate closes the race with a concurrent
// confirm: a request on an already-settled group fails instead of
// resurrecting the pending flag.
func (s *SQLiteStore) MarkSettlementRequested(ctx context.Context, groupID, requestedBy string, at int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE groups SET is_pending_approval = 1, requested_by = ?, ps_date = ? WHERE id = ? AND is_paid = 0",
		models.NormalizeEmail(requestedBy), at, groupID)
	if err != nil {
		return fmt.Errorf("failed to mark settlement requested: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetGroup(ctx, groupID); err != nil {
			return err
		}
		return storage.ErrStateMismatch
	}
	return nil
}

// MarkSettled flips the group to paid and clears the pending request.
// Idempotent; also records the durable last-settled audit timestamp.
func (s *SQLiteStore) MarkSettled(ctx context.Context, groupID string, at int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE groups SET is_paid = 1, is_pending_approval = 0, requested_by = '', ps_date = ?, last_settled_at = ? WHERE id = ?",
		at, at, groupID)
	if err != nil {
		return fmt.Errorf("failed to mark settled: %w", err)
	}
	return requireRow(res)
}

// MarkReopened flips the group back to unpaid with no pending request.
func (s *SQLiteStore) MarkReopened(ctx context.Context, groupID string, at int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE groups SET is_paid = 0, is_pending_approval = 0, requested_by = '', ps_date = ? WHERE id = ?",
		at, groupID)
	if err != nil {
		return fmt.Errorf("failed to mark reopened: %w", err)
	}
	return requireRow(res)
}

// LastSettled returns the most recent settlement timestamp, zero if never
// settled. Reopening does not clear it: it is the retained audit signal.
func (s *SQLiteStore) LastSettled(ctx context.Context, groupID string) (int64, error) {
	var at int64
	err := s.db.QueryRowContext(ctx,
		"SELECT last_settled_at FROM groups WHERE id = ?", groupID).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get last settled: %w", err)
	}
	return at, nil
}

func scanGroup(row rowScanner) (*models.Group, error) {
	group := &models.Group{}
	var budget, psAmount string
	var isPaid, isPending int
	err := row.Scan(&group.ID, &group.Name, &group.Description,
		&group.AdminEmail, &group.AdminID, &group.Thumbnail, &budget,
		&psAmount, &group.PaymentStatus.Currency, &group.PaymentStatus.Date,
		&isPaid, &isPending, &group.PaymentStatus.RequestedBy,
		&group.CreatedAt)
	if err != nil {
		return nil, err
	}
	if group.BudgetGoal, err = decimal.NewFromString(budget); err != nil {
		return nil, fmt.Errorf("invalid budget goal %q: %w", budget, err)
	}
	if group.PaymentStatus.Amount, err = decimal.NewFromString(psAmount); err != nil {
		return nil, fmt.Errorf("invalid payment amount %q: %w", psAmount, err)
	}
	group.PaymentStatus.IsPaid = isPaid != 0
	group.PaymentStatus.IsPendingApproval = isPending != 0
	return group, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
