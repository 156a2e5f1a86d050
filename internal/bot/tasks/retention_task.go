package tasks

import (
	"context"
	"fmt"
	"time"
)

// newConversationRetentionTask creates the scheduled task that purges
// conversation messages older than the configured retention window.
func newConversationRetentionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "conversation_retention")
	age := time.Duration(deps.Config.Bot.RetentionDays) * 24 * time.Hour

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting conversation retention task", "retention_days", deps.Config.Bot.RetentionDays)
		startTime := time.Now()

		deleted, err := deps.Store.PurgeMessagesOlderThan(ctx, age)
		duration := time.Since(startTime)

		if err != nil {
			log.ErrorContext(ctx, "Conversation retention task failed", "error", err, "duration", duration)
			return fmt.Errorf("conversation retention failed: %w", err)
		}

		log.InfoContext(ctx, "Conversation retention task completed", "deleted", deleted, "duration", duration)
		return nil
	}
}
