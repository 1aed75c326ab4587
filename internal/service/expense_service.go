package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vaibhavdeo21/Finance-Server/internal/authz"
	"github.com/vaibhavdeo21/Finance-Server/internal/balance"
	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

// ExpenseService implements the expense ledger and balance summaries.
type ExpenseService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(store storage.Store, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{store: store, logger: logger}
}

// SplitInput is one split line of a new expense.
type SplitInput struct {
	Email  string
	Amount decimal.Decimal
}

// AddExpenseInput carries the fields for a new expense.
type AddExpenseInput struct {
	GroupID     string
	Description string
	Amount      decimal.Decimal
	PayerEmail  string
	Splits      []SplitInput
}

// AddExpense records a new expense. The caller needs the admin or manager
// group role; viewers are read-only. The split amounts must add up to the
// expense amount within the fixed tolerance, and the expense is rejected
// with no side effects otherwise.
func (s *ExpenseService) AddExpense(ctx context.Context, caller Caller, in AddExpenseInput) (*models.Expense, error) {
	group, err := s.store.GetGroup(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email, models.RoleAdmin, models.RoleManager); err != nil {
		return nil, err
	}

	if in.Description == "" {
		return nil, validationErr("description is required")
	}
	if !in.Amount.IsPositive() {
		return nil, validationErr("amount must be positive")
	}
	payer := models.NormalizeEmail(in.PayerEmail)
	if group.MemberByEmail(payer) == nil {
		return nil, validationErr("payer is not a member of the group")
	}
	if len(in.Splits) == 0 {
		return nil, validationErr("at least one split is required")
	}

	expense := &models.Expense{
		GroupID:     group.ID,
		Description: in.Description,
		Amount:      in.Amount,
		PayerEmail:  payer,
	}
	seen := make(map[string]bool, len(in.Splits))
	for _, split := range in.Splits {
		if split.Amount.IsNegative() {
			return nil, validationErr("split amounts cannot be negative")
		}
		email := models.NormalizeEmail(split.Email)
		if seen[email] {
			return nil, validationErr(fmt.Sprintf("duplicate split member %q", email))
		}
		seen[email] = true
		expense.Splits = append(expense.Splits, models.Split{
			Email:  email,
			Amount: split.Amount,
		})
	}
	if !expense.SplitsBalanced() {
		return nil, ErrSplitMismatch
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		s.logger.Error("expense creation failed", "group_id", group.ID, "error", err)
		return nil, err
	}

	s.logger.Info("expense added",
		"expense_id", expense.ID,
		"group_id", group.ID,
		"amount", expense.Amount,
		"payer", payer,
	)
	return expense, nil
}

// ListGroupExpenses returns a group's expenses, newest first. Any member
// may list.
func (s *ExpenseService) ListGroupExpenses(ctx context.Context, caller Caller, groupID string) ([]*models.Expense, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email,
		models.RoleAdmin, models.RoleManager, models.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.ListExpensesByGroup(ctx, groupID)
}

// MemberBalance is one member's net standing, decorated with a display
// name resolved from the identity store.
type MemberBalance struct {
	Email   string
	Name    string
	Balance decimal.Decimal
}

// GroupSummary computes net balances over the group's unsettled expenses.
// Positive = owed money, negative = owes money. Member display names fall
// back to the email local part when the address does not resolve.
func (s *ExpenseService) GroupSummary(ctx context.Context, caller Caller, groupID string) ([]MemberBalance, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireGroupRole(group, caller.ID, caller.Email,
		models.RoleAdmin, models.RoleManager, models.RoleViewer); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListUnsettledByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	balances := balance.Compute(expenses)
	if len(balances) == 0 {
		return nil, nil
	}

	emails := make([]string, 0, len(balances))
	for email := range balances {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	users, err := s.store.GetUsersByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}

	summary := make([]MemberBalance, 0, len(balances))
	for _, email := range emails {
		name := models.EmailLocalPart(email)
		if user, ok := users[email]; ok {
			name = user.DisplayName()
		}
		summary = append(summary, MemberBalance{
			Email:   email,
			Name:    name,
			Balance: balances[email],
		})
	}
	return summary, nil
}
