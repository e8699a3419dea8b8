package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/Simonx22/telegram-assistant/internal/assistant"
	"github.com/Simonx22/telegram-assistant/internal/conversation"
)

// ConversationPruneJob removes conversation state that has not been used
// within MaxAge. Pruned chats simply start a fresh Assistant conversation
// on their next message.
type ConversationPruneJob struct {
	States conversation.StateStore
	MaxAge time.Duration
	Logger *slog.Logger
}

// Name implements Job.
func (j *ConversationPruneJob) Name() string { return "conversation.prune" }

// Run implements Job.
func (j *ConversationPruneJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-j.MaxAge)
	n, err := j.States.PruneBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		j.Logger.Info("pruned stale conversations", "count", n, "max_age", j.MaxAge)
	}
	return nil
}

// AssistantHealthJob probes the Assistant backend so credential problems
// surface in the logs before a user hits them.
type AssistantHealthJob struct {
	Checker assistant.HealthChecker
	Logger  *slog.Logger
}

// Name implements Job.
func (j *AssistantHealthJob) Name() string { return "assistant.health" }

// Run implements Job.
func (j *AssistantHealthJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return j.Checker.HealthCheck(ctx)
}
