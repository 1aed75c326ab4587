package models

// SubscriptionStatus values mirror the provider-side lifecycle the webhook
// reports; the core only cares whether the subscription is currently active.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

// Subscription is the provider-backed unlimited-credits plan attached to a
// user account. Updated only by verified webhook events.
type Subscription struct {
	// PlanID identifies the provider plan (monthly/yearly).
	PlanID string

	// ProviderSubID is the gateway's subscription identifier.
	ProviderSubID string

	// Status is one of the Subscription* constants.
	Status string
}

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique, case-normalized).
	Email string

	// Name is the display name of the user.
	Name string

	// PasswordHash is the bcrypt hash of the user's password.
	// Empty for externally-authenticated (SSO-provisioned) identities.
	PasswordHash string

	// Role is the account-level role (admin, manager or viewer). This is
	// independent of any group-level role the user may hold.
	Role string

	// AdminID references the owning admin for hierarchically provisioned
	// accounts. Empty for self-registered users.
	AdminID string

	// Credits is the consumable counter gating group creation. Creating a
	// group costs one credit.
	Credits int

	// Subscription is the optional provider subscription; nil when the user
	// has never subscribed.
	Subscription *Subscription

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// DisplayName returns the user's name, falling back to the local part of
// the email when no name is set.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return EmailLocalPart(u.Email)
}
