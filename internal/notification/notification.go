package notification

import (
	"context"
	"log/slog"
)

const (
	// KindWalletOperation is sent after a deposit or withdrawal commits.
	KindWalletOperation = "wallet_operation"
	// KindWalletDeleted is sent after a wallet is removed.
	KindWalletDeleted = "wallet_deleted"
)

// Message describes a notification payload.
type Message struct {
	Kind     string
	WalletID string
	Body     string
}

// Notifier delivers notifications to downstream systems. Delivery happens after
// the change is committed and cannot undo it.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.InfoContext(ctx, "notification",
		slog.String("kind", message.Kind),
		slog.String("wallet_id", message.WalletID),
		slog.String("body", message.Body),
	)
	return nil
}
