package models

import "github.com/shopspring/decimal"

// SplitTolerance is the maximum allowed absolute difference between an
// expense amount and the sum of its split amounts.
var SplitTolerance = decimal.RequireFromString("0.1")

// Split allocates part of an expense's total to one member's obligation.
type Split struct {
	// Email is the member who owes this share (case-normalized).
	Email string

	// Amount is the non-negative share owed.
	Amount decimal.Decimal
}

// Expense is one entry in a group's ledger: who paid, and who owes what.
//
// An expense is immutable once created except for the settlement fields,
// which transition only through the settlement workflow. Expenses are
// deleted only as a cascade of group deletion.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the owning group (immutable).
	GroupID string

	// Description is the human-readable label for the expense.
	Description string

	// Amount is the positive total of the expense.
	Amount decimal.Decimal

	// PayerEmail is the member who paid (case-normalized). The payer may
	// also appear in Splits; that is a valid configuration, not an error.
	PayerEmail string

	// Splits partition Amount among members. The sum of split amounts must
	// equal Amount within SplitTolerance.
	Splits []Split

	// IsSettled is true once the expense was closed by a settlement.
	IsSettled bool

	// SettledBy is the email of the member who confirmed the settlement.
	SettledBy string

	// SettledAt is the Unix timestamp of the settlement; zero if unsettled.
	SettledAt int64

	// SettlementBatchID groups all expenses settled together in one confirm
	// call. Unique per confirm cycle.
	SettlementBatchID string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// SplitSum returns the sum of all split amounts.
func (e *Expense) SplitSum() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range e.Splits {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// SplitsBalanced reports whether the split amounts add up to the expense
// amount within SplitTolerance.
func (e *Expense) SplitsBalanced() bool {
	return e.SplitSum().Sub(e.Amount).Abs().LessThanOrEqual(SplitTolerance)
}
