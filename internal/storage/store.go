// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/vaibhavdeo21/Finance-Server/internal/models"
)

// Sentinel errors returned by store implementations. Services translate
// these into the caller-facing error taxonomy; raw driver errors never
// cross the store boundary.
var (
	// ErrNotFound is returned when an identifier does not resolve.
	ErrNotFound = errors.New("storage: not found")

	// ErrConflict is returned on unique-key violations (duplicate email).
	ErrConflict = errors.New("storage: already exists")

	// ErrNoCredits is returned by ConsumeCredit when the user's credit
	// counter is already zero.
	ErrNoCredits = errors.New("storage: no credits available")

	// ErrStateMismatch is returned by conditional updates whose
	// current-state predicate did not match (e.g. requesting settlement on
	// an already-settled group).
	ErrStateMismatch = errors.New("storage: state precondition failed")
)

// SortOrder selects creation-time ordering for paginated listings.
type SortOrder string

const (
	SortNewestFirst SortOrder = "newest"
	SortOldestFirst SortOrder = "oldest"
)

// ListOptions carries pagination and ordering for group listings.
type ListOptions struct {
	Limit  int
	Offset int
	Sort   SortOrder
}

// UserStore persists user accounts. It doubles as the identity-lookup
// collaborator consumed by balance/activity enrichment.
type UserStore interface {
	// CreateUser persists a new user, populating ID and CreatedAt.
	// Returns ErrConflict if the email is already registered.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by normalized email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUsersByEmails batch-resolves users keyed by normalized email.
	// Unresolvable emails are simply absent from the result.
	GetUsersByEmails(ctx context.Context, emails []string) (map[string]*models.User, error)

	// ListUsersByAdminID returns the accounts provisioned under an admin.
	ListUsersByAdminID(ctx context.Context, adminID string) ([]*models.User, error)

	// UpdateUser updates name, role and admin reference.
	UpdateUser(ctx context.Context, user *models.User) error

	// DeleteUser removes a user account.
	DeleteUser(ctx context.Context, id string) error

	// ConsumeCredit atomically decrements the user's credit counter,
	// returning ErrNoCredits when it is already zero.
	ConsumeCredit(ctx context.Context, userID string) error

	// GrantCredits atomically adds credits to the user's counter.
	GrantCredits(ctx context.Context, userID string, credits int) error

	// UpdateSubscription replaces the user's subscription record.
	UpdateSubscription(ctx context.Context, userID string, sub *models.Subscription) error
}

// GroupStore persists groups and their embedded member lists. Member
// mutations are idempotent and keep the MembersEmail projection consistent
// with the authoritative member rows.
type GroupStore interface {
	// CreateGroup persists a new group with its members, populating ID and
	// CreatedAt.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group, members included.
	GetGroup(ctx context.Context, id string) (*models.Group, error)

	// UpdateGroup updates name, description and thumbnail. Payment
	// status changes go through the settlement transition methods.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// UpdateBudget sets the group's budget goal.
	UpdateBudget(ctx context.Context, groupID string, budget decimal.Decimal) error

	// DeleteGroup removes a group; expenses cascade.
	DeleteGroup(ctx context.Context, id string) error

	// AddMembers adds members idempotently: already-present emails are
	// left untouched (no duplicates, role preserved).
	AddMembers(ctx context.Context, groupID string, members []models.Member) error

	// RemoveMember removes a member idempotently; removing an absent email
	// is a no-op.
	RemoveMember(ctx context.Context, groupID, email string) error

	// SetMemberRole changes one member's group-level role.
	// Returns ErrNotFound if the email is not a member.
	SetMemberRole(ctx context.Context, groupID, email, role string) error

	// SetMemberSettlementStatus sets one member's settlement sub-state.
	SetMemberSettlementStatus(ctx context.Context, groupID, email, status string) error

	// ResetMemberSettlementStatuses resets every member to SettlementNone.
	ResetMemberSettlementStatuses(ctx context.Context, groupID string) error

	// ListGroupsForUser returns groups where the email is a member or the
	// admin ID is one of ownerIDs, paginated, plus the total count.
	ListGroupsForUser(ctx context.Context, email string, ownerIDs []string, opts ListOptions) ([]*models.Group, int, error)

	// ListGroupsByPaymentStatus filters groups by the IsPaid flag.
	ListGroupsByPaymentStatus(ctx context.Context, isPaid bool) ([]*models.Group, error)

	// MarkSettlementRequested conditionally transitions the group to
	// pending approval. Returns ErrStateMismatch when the group is already
	// settled.
	MarkSettlementRequested(ctx context.Context, groupID, requestedBy string, at int64) error

	// MarkSettled transitions payment status to paid and clears the
	// pending request. Idempotent.
	MarkSettled(ctx context.Context, groupID string, at int64) error

	// MarkReopened transitions payment status to unpaid with no pending
	// request. Idempotent.
	MarkReopened(ctx context.Context, groupID string, at int64) error

	// LastSettled returns the Unix timestamp of the group's most recent
	// settlement, zero if never settled.
	LastSettled(ctx context.Context, groupID string) (int64, error)
}

// ExpenseStore persists the expense ledger.
type ExpenseStore interface {
	// CreateExpense persists a new expense with its splits, populating ID
	// and CreatedAt.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its splits.
	GetExpense(ctx context.Context, id string) (*models.Expense, error)

	// ListExpensesByGroup returns all expenses for a group, newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// ListUnsettledByGroup returns the group's unsettled expenses.
	ListUnsettledByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// SettleBatch marks every unsettled expense in the group settled,
	// stamping the shared batch ID, settler and timestamp in one statement.
	// Returns the number of expenses settled.
	SettleBatch(ctx context.Context, groupID, batchID, settledBy string, at int64) (int, error)

	// ReopenAll resets every expense in the group to unsettled, clearing
	// settlement provenance.
	ReopenAll(ctx context.Context, groupID string) error

	// ReopenBatch resets only the expenses of one settlement batch.
	ReopenBatch(ctx context.Context, groupID, batchID string) error

	// LatestBatchID returns the batch ID of the most recent settlement,
	// empty if the group was never settled.
	LatestBatchID(ctx context.Context, groupID string) (string, error)
}

// Store is the combined persistence interface the service layer depends on.
// The abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	UserStore
	GroupStore
	ExpenseStore

	// Close releases any resources held by the store.
	Close() error
}
