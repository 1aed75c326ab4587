// Package payments defines the narrow contract the core holds against the
// payment gateway. Order creation, webhook signature verification and
// subscription queries are opaque collaborator calls; the core only
// consumes "credits granted" and "subscription status changed" events.
package payments

import (
	"context"
	"errors"
)

var (
	// ErrInvalidPack is returned for credit amounts with no price mapping.
	ErrInvalidPack = errors.New("payments: invalid credits value")

	// ErrBadSignature is returned when webhook verification fails.
	ErrBadSignature = errors.New("payments: webhook signature verification failed")
)

// CreditPacks maps purchasable credit amounts to their price in paise.
var CreditPacks = map[int]int64{
	10:  100,
	50:  400,
	100: 700,
}

// Subscription plan identifiers.
const (
	PlanUnlimitedMonthly = "unlimited-monthly"
	PlanUnlimitedYearly  = "unlimited-yearly"
)

// Order is a gateway-side payment order awaiting capture.
type Order struct {
	ID       string
	Amount   int64 // paise
	Currency string
	Receipt  string
}

// Webhook event types the core reacts to.
const (
	EventPaymentCaptured      = "payment.captured"
	EventSubscriptionActive   = "subscription.activated"
	EventSubscriptionCharged  = "subscription.charged"
	EventSubscriptionHalted   = "subscription.halted"
	EventSubscriptionCanceled = "subscription.cancelled"
)

// WebhookEvent is the verified, decoded payload of a gateway webhook.
type WebhookEvent struct {
	Type string

	// UserID identifies the account the event applies to (carried in the
	// order/subscription notes at creation time).
	UserID string

	// Credits is the purchased credit amount for payment events.
	Credits int

	// PlanID and SubscriptionID describe subscription events.
	PlanID         string
	SubscriptionID string
}

// Subscription is the provider-side view of a subscription.
type Subscription struct {
	ID     string
	PlanID string
	Status string
}

// Gateway is the payment-provider collaborator.
type Gateway interface {
	// CreateOrder opens a gateway order for the given amount.
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (*Order, error)

	// VerifyWebhook checks the provider signature over the raw body and
	// decodes the event. Returns ErrBadSignature on verification failure.
	VerifyWebhook(body []byte, signature string) (*WebhookEvent, error)

	// FetchSubscription reads the current provider-side state of a
	// subscription.
	FetchSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
}
