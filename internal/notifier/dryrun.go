package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/atorrez/fleetwatch/internal/logger"
)

// DryRun logs what would be sent without delivering anything. Used
// when fleetwatch runs with DRY_RUN=true or no bot token.
type DryRun struct {
	log *zap.Logger
}

// NewDryRun creates a dry-run notifier.
func NewDryRun(log *zap.Logger) *DryRun {
	if log == nil {
		log = logger.Named("notifier")
	}
	return &DryRun{log: log}
}

// Send logs the message instead of posting it.
func (n *DryRun) Send(_ context.Context, msg Message) error {
	n.log.Info("dry-run notification",
		zap.Int64("chat_id", msg.ChatID),
		zap.Int("topic_id", msg.TopicID),
		zap.Int("length", len(msg.Text)),
		zap.String("text", msg.Text))
	return nil
}
