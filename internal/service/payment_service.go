package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/vaibhavdeo21/Finance-Server/internal/authz"
	"github.com/vaibhavdeo21/Finance-Server/internal/models"
	"github.com/vaibhavdeo21/Finance-Server/internal/payments"
	"github.com/vaibhavdeo21/Finance-Server/internal/storage"
)

// PaymentService handles credit purchases and gateway webhook events. The
// gateway itself is opaque; the core only consumes "credits granted" and
// "subscription status changed" outcomes.
type PaymentService struct {
	store   storage.UserStore
	gateway payments.Gateway
	authz   *authz.Authorizer
	logger  *slog.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(store storage.UserStore, gateway payments.Gateway, az *authz.Authorizer, logger *slog.Logger) *PaymentService {
	return &PaymentService{store: store, gateway: gateway, authz: az, logger: logger}
}

// CreateOrder opens a gateway order for one of the fixed credit packs.
func (s *PaymentService) CreateOrder(ctx context.Context, caller Caller, credits int) (*payments.Order, error) {
	if err := s.authz.Can(caller.Role, models.ActionPaymentCreate); err != nil {
		return nil, err
	}

	amountPaise, ok := payments.CreditPacks[credits]
	if !ok {
		return nil, payments.ErrInvalidPack
	}

	receipt := fmt.Sprintf("receipt_%d", time.Now().UnixMilli())
	order, err := s.gateway.CreateOrder(ctx, amountPaise, "INR", receipt, map[string]string{
		"user_id": caller.ID,
		"credits": strconv.Itoa(credits),
	})
	if err != nil {
		s.logger.Error("order creation failed", "user_id", caller.ID, "error", err)
		return nil, err
	}

	s.logger.Info("order created", "order_id", order.ID, "user_id", caller.ID, "credits", credits)
	return order, nil
}

// SubscriptionStatus returns the caller's subscription, refreshed against
// the provider. Webhooks keep the stored record current; the fetch covers
// transitions a missed webhook would drop.
func (s *PaymentService) SubscriptionStatus(ctx context.Context, caller Caller) (*models.Subscription, error) {
	user, err := s.store.GetUserByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if user.Subscription == nil || user.Subscription.ProviderSubID == "" {
		return nil, nil
	}

	remote, err := s.gateway.FetchSubscription(ctx, user.Subscription.ProviderSubID)
	if err != nil {
		s.logger.Warn("subscription fetch failed, serving stored state", "user_id", user.ID, "error", err)
		return user.Subscription, nil
	}

	status := subscriptionStatusFromProvider(remote.Status)
	if status != user.Subscription.Status {
		user.Subscription.Status = status
		user.Subscription.PlanID = remote.PlanID
		if err := s.store.UpdateSubscription(ctx, user.ID, user.Subscription); err != nil {
			return nil, err
		}
	}
	return user.Subscription, nil
}

func subscriptionStatusFromProvider(status string) string {
	switch status {
	case "active", "authenticated":
		return models.SubscriptionActive
	case "halted", "cancelled", "paused":
		return models.SubscriptionCancelled
	case "completed", "expired":
		return models.SubscriptionExpired
	default:
		return status
	}
}

// HandleWebhook verifies and applies a gateway event: captured payments
// grant credits, subscription events update the user's subscription
// record.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	event, err := s.gateway.VerifyWebhook(body, signature)
	if err != nil {
		s.logger.Warn("webhook rejected", "error", err)
		return err
	}

	switch event.Type {
	case payments.EventPaymentCaptured:
		if err := s.store.GrantCredits(ctx, event.UserID, event.Credits); err != nil {
			return err
		}
		s.logger.Info("credits granted", "user_id", event.UserID, "credits", event.Credits)

	case payments.EventSubscriptionActive, payments.EventSubscriptionCharged:
		if err := s.store.UpdateSubscription(ctx, event.UserID, &models.Subscription{
			PlanID:        event.PlanID,
			ProviderSubID: event.SubscriptionID,
			Status:        models.SubscriptionActive,
		}); err != nil {
			return err
		}
		s.logger.Info("subscription active", "user_id", event.UserID, "plan", event.PlanID)

	case payments.EventSubscriptionHalted, payments.EventSubscriptionCanceled:
		if err := s.store.UpdateSubscription(ctx, event.UserID, &models.Subscription{
			PlanID:        event.PlanID,
			ProviderSubID: event.SubscriptionID,
			Status:        models.SubscriptionCancelled,
		}); err != nil {
			return err
		}
		s.logger.Info("subscription ended", "user_id", event.UserID, "plan", event.PlanID)

	default:
		// Unknown events are acknowledged and ignored.
		s.logger.Debug("webhook event ignored", "type", event.Type)
	}
	return nil
}
