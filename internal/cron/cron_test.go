package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Simonx22/telegram-assistant/internal/conversation"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type noopJob struct {
	name string
}

func (j *noopJob) Name() string { return j.name }

func (j *noopJob) Run(ctx context.Context) error { return nil }

func TestSchedulerRejectsBadExpression(t *testing.T) {
	t.Parallel()

	s := NewScheduler(discardLogger())
	if err := s.Add("not a schedule", &noopJob{name: "x"}); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestSchedulerStopIdle(t *testing.T) {
	t.Parallel()

	s := NewScheduler(discardLogger())
	if err := s.Add("@hourly", &noopJob{name: "idle"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop with no running jobs should return promptly: %v", err)
	}
}

func TestConversationPruneJob(t *testing.T) {
	t.Parallel()

	states := conversation.NewMemStateStore()
	ctx := context.Background()
	if err := states.Put(ctx, "chat-1", []byte("t")); err != nil {
		t.Fatal(err)
	}

	job := &ConversationPruneJob{
		States: states,
		MaxAge: 0, // everything older than "now" is stale
		Logger: discardLogger(),
	}

	// A zero MaxAge makes the cutoff the current instant; the entry
	// written above predates it.
	time.Sleep(10 * time.Millisecond)
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok, _ := states.Get(ctx, "chat-1"); ok {
		t.Error("stale conversation survived prune")
	}
}

type fakeChecker struct {
	err error
}

func (f *fakeChecker) HealthCheck(ctx context.Context) error { return f.err }

func TestAssistantHealthJob(t *testing.T) {
	t.Parallel()

	job := &AssistantHealthJob{Checker: &fakeChecker{}, Logger: discardLogger()}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	boom := errors.New("credentials expired")
	job = &AssistantHealthJob{Checker: &fakeChecker{err: boom}, Logger: discardLogger()}
	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run = %v, want %v", err, boom)
	}
}

func TestPruneConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	cfg.applyDefaults()

	if cfg.Prune.Schedule == "" {
		t.Error("prune schedule default missing")
	}
	if cfg.Prune.MaxAge.Std() != 30*24*time.Hour {
		t.Errorf("max age = %v", cfg.Prune.MaxAge.Std())
	}
	if cfg.Health.Schedule == "" {
		t.Error("health schedule default missing")
	}
}
