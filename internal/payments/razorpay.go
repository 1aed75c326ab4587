package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

// RazorpayGateway talks to the Razorpay REST API and verifies its
// webhooks with the shared HMAC secret.
type RazorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	client        *http.Client
}

// NewRazorpayGateway creates a gateway with the given API credentials.
func NewRazorpayGateway(keyID, keySecret, webhookSecret string) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder opens a Razorpay order. The notes map travels with the
// order and comes back on the capture webhook.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (*Order, error) {
	payload, err := json.Marshal(map[string]any{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, razorpayBaseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payments: order creation returned status %d", resp.StatusCode)
	}

	var body razorpayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &Order{
		ID:       body.ID,
		Amount:   body.Amount,
		Currency: body.Currency,
		Receipt:  body.Receipt,
	}, nil
}

type razorpaySubscriptionResponse struct {
	ID     string `json:"id"`
	PlanID string `json:"plan_id"`
	Status string `json:"status"`
}

// FetchSubscription reads the provider-side state of a subscription.
func (g *RazorpayGateway) FetchSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, razorpayBaseURL+"/subscriptions/"+subscriptionID, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payments: subscription fetch returned status %d", resp.StatusCode)
	}

	var body razorpaySubscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &Subscription{ID: body.ID, PlanID: body.PlanID, Status: body.Status}, nil
}

type razorpayWebhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				Notes map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
		Subscription struct {
			Entity struct {
				ID     string            `json:"id"`
				PlanID string            `json:"plan_id"`
				Notes  map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"subscription"`
	} `json:"payload"`
}

// VerifyWebhook checks the HMAC-SHA256 signature over the raw body and
// lifts the provider envelope into a WebhookEvent.
func (g *RazorpayGateway) VerifyWebhook(body []byte, signature string) (*WebhookEvent, error) {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrBadSignature
	}

	var envelope razorpayWebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("payments: malformed webhook payload: %w", err)
	}

	event := &WebhookEvent{Type: envelope.Event}
	switch envelope.Event {
	case EventPaymentCaptured:
		notes := envelope.Payload.Payment.Entity.Notes
		event.UserID = notes["user_id"]
		if credits, err := strconv.Atoi(notes["credits"]); err == nil {
			event.Credits = credits
		}
	case EventSubscriptionActive, EventSubscriptionCharged, EventSubscriptionHalted, EventSubscriptionCanceled:
		sub := envelope.Payload.Subscription.Entity
		event.UserID = sub.Notes["user_id"]
		event.PlanID = sub.PlanID
		event.SubscriptionID = sub.ID
	}
	return event, nil
}
