package service

import (
	"context"

	"token-ledger-service/internal/util"

	"go.uber.org/zap"
)

// Notifier delivers user-facing notifications. Delivery is fire-and-forget:
// callers log failures and never propagate them into ledger operations.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message, relatedURL string) error
}

// LogNotifier writes notifications to the service log. Stands in for the
// marketplace's delivery channel in development and tests.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

func (n *LogNotifier) Notify(ctx context.Context, userID, title, message, relatedURL string) error {
	n.logger.Info("Notification delivered",
		zap.String("user_id", userID),
		zap.String("title", title),
		zap.String("message", message),
		zap.String("related_url", relatedURL))
	return nil
}
