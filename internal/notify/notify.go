// Package notify defines the outbound notification collaborator. Delivery
// is best-effort: callers log failures and carry on, a failed email never
// aborts the operation that triggered it.
package notify

import (
	"context"
	"log/slog"
)

// Notifier sends a plain-text message to a recipient.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogNotifier is the default Notifier: it records the notification in the
// structured log instead of delivering it. Useful for development and as a
// stand-in until an SMTP-backed implementation is wired.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "to", to, "subject", subject)
	return nil
}
