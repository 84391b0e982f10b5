package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/yukikurage/pmbot/internal/logger"
)

// LogNotifier writes messages to the log instead of delivering them
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.OrNop(log)}
}

// Deliver logs the message and always succeeds
func (n *LogNotifier) Deliver(_ context.Context, channelID string, msg Message) error {
	n.logger.Info("notification",
		zap.String("channel_id", channelID),
		zap.String("kind", string(msg.Kind)),
		zap.String("title", msg.Title),
		zap.Strings("mentions", msg.Mentions),
	)
	return nil
}
