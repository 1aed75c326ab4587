package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

const expenseColumns = "id, group_id, description, amount, payer_email, is_settled, settled_by, settled_at, settlement_batch_id, created_at"

// CreateExpense persists a new expense with its splits.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	expense.PayerEmail = models.NormalizeEmail(expense.PayerEmail)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		expense.ID, expense.GroupID, expense.Description,
		expense.Amount.String(), expense.PayerEmail,
		boolToInt(expense.IsSettled), expense.SettledBy, expense.SettledAt,
		expense.SettlementBatchID, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i := range expense.Splits {
		split := &expense.Splits[i]
		split.Email = models.NormalizeEmail(split.Email)
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, email, amount) VALUES (?, ?, ?)",
			expense.ID, split.Email, split.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, splits included.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if err := s.loadSplits(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// ListExpensesByGroup returns all expenses for a group, newest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return s.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE group_id = ? ORDER BY created_at DESC, id",
		groupID)
}

// ListUnsettledByGroup returns the group's unsettled expenses.
func (s *SQLiteStore) ListUnsettledByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return s.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE group_id = ? AND is_settled = 0 ORDER BY created_at DESC, id",
		groupID)
}

// SettleBatch marks every unsettled expense in the group settled in a
// single statement; the is_settled predicate makes a concurrent second
// confirm settle zero rows instead of re-stamping the batch.
func (s *SQLiteStore) SettleBatch(ctx context.Context, groupID, batchID, settledBy string, at int64) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE expenses SET is_settled = 1, settlement_batch_id = ?, settled_by = ?, settled_at = ? WHERE group_id = ? AND is_settled = 0",
		batchID, models.NormalizeEmail(settledBy), at, groupID)
	if err != nil {
		return 0, fmt.Errorf("failed to settle batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}

// ReopenAll resets every expense in the group to unsettled.
func (s *SQLiteStore) ReopenAll(ctx context.Context, groupID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE expenses SET is_settled = 0, settlement_batch_id = '', settled_by = '', settled_at = 0 WHERE group_id = ?",
		groupID)
	if err != nil {
		return fmt.Errorf("failed to reopen expenses: %w", err)
	}
	return nil
}

// ReopenBatch resets only the expenses of one settlement batch.
func (s *SQLiteStore) ReopenBatch(ctx context.Context, groupID, batchID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE expenses SET is_settled = 0, settlement_batch_id = '', settled_by = '', settled_at = 0 WHERE group_id = ? AND settlement_batch_id = ?",
		groupID, batchID)
	if err != nil {
		return fmt.Errorf("failed to reopen batch: %w", err)
	}
	return nil
}

// LatestBatchID returns the batch ID of the most recent settlement.
func (s *SQLiteStore) LatestBatchID(ctx context.Context, groupID string) (string, error) {
	var batchID string
	err := s.db.QueryRowContext(ctx,
		"SELECT settlement_batch_id FROM expenses WHERE group_id = ? AND is_settled = 1 ORDER BY settled_at DESC LIMIT 1",
		groupID).Scan(&batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest batch: %w", err)
	}
	return batchID, nil
}

func (s *SQLiteStore) queryExpenses(ctx context.Context, query string, args ...any) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, expense := range expenses {
		if err := s.loadSplits(ctx, expense); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

func (s *SQLiteStore) loadSplits(ctx context.Context, expense *models.Expense) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT email, amount FROM expense_splits WHERE expense_id = ? ORDER BY email",
		expense.ID)
	if err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	expense.Splits = nil
	for rows.Next() {
		var split models.Split
		var amount string
		if err := rows.Scan(&split.Email, &amount); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		if split.Amount, err = decimal.NewFromString(amount); err != nil {
			return fmt.Errorf("invalid split amount %q: %w", amount, err)
		}
		expense.Splits = append(expense.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate splits: %w", err)
	}
	return nil
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	expense := &models.Expense{}
	var amount string
	var settled int
	err := row.Scan(&expense.ID, &expense.GroupID, &expense.Description,
		&amount, &expense.PayerEmail, &settled, &expense.SettledBy,
		&expense.SettledAt, &expense.SettlementBatchID, &expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	if expense.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid expense amount %q: %w", amount, err)
	}
	expense.IsSettled = settled != 0
	return expense, nil
}
