package models

import "github.com/shopspring/decimal"

// Member settlement statuses, transient per settlement cycle.
const (
	SettlementNone      = "none"
	SettlementRequested = "requested"
	SettlementConfirmed = "confirmed"
)

// Member is one participant of a group.
type Member struct {
	// Email is the member's identity within the group (case-normalized,
	// unique per group).
	Email string

	// Role is the member's group-level role (admin, manager or viewer).
	Role string

	// JoinedAt is the Unix timestamp when the member was added.
	JoinedAt int64

	// SettlementStatus tracks per-member confirmation within the current
	// settlement cycle: none, requested or confirmed. Reset to none when
	// the group is settled or reopened.
	SettlementStatus string
}

// PaymentStatus is the group's settlement-cycle state.
//
// IsPendingApproval and RequestedBy are always set and cleared together.
type PaymentStatus struct {
	// Amount is informational only; the authoritative balances are always
	// derived from the expense ledger.
	Amount decimal.Decimal

	// Currency is the ISO currency code for Amount.
	Currency string

	// Date is the Unix timestamp of the last settlement activity. The most
	// recent settlement date is the only audit signal the system retains.
	Date int64

	// IsPaid is true while the group is in the SETTLED state.
	IsPaid bool

	// IsPendingApproval is true while a settlement request is outstanding.
	IsPendingApproval bool

	// RequestedBy is the email of the member who requested settlement;
	// empty when no request is outstanding.
	RequestedBy string
}

// Group represents a set of members sharing expenses.
//
// Invariants:
//   - the owning admin (AdminEmail/AdminID) is always present in Members
//     with the admin role and can never be removed;
//   - MembersEmail is always the set-union projection of Members' emails.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group.
	Name string

	// Description is an optional free-form description.
	Description string

	// AdminEmail is the owning admin's email. AdminID is authoritative;
	// the email is kept for member-list fallback resolution.
	AdminEmail string

	// AdminID is the owning admin's user ID.
	AdminID string

	// Members is the authoritative participant list.
	Members []Member

	// MembersEmail is the derived, normalized projection of member emails,
	// kept for lookup.
	MembersEmail []string

	// Thumbnail is an optional image reference.
	Thumbnail string

	// BudgetGoal is the optional spending target for the group.
	BudgetGoal decimal.Decimal

	// PaymentStatus is the settlement-cycle sub-record.
	PaymentStatus PaymentStatus

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// MemberByEmail returns the member with the given (normalized) email, or
// nil if absent.
func (g *Group) MemberByEmail(email string) *Member {
	email = NormalizeEmail(email)
	for i := range g.Members {
		if g.Members[i].Email == email {
			return &g.Members[i]
		}
	}
	return nil
}

// IsOwner reports whether the given caller identity is the group's owning
// admin. The ID comparison is authoritative; the email comparison covers
// groups created before stable IDs were recorded.
func (g *Group) IsOwner(userID, email string) bool {
	if userID != "" && userID == g.AdminID {
		return true
	}
	return NormalizeEmail(email) == NormalizeEmail(g.AdminEmail)
}
