package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps robfig/cron with per-job overlap protection and timing
// logs. A job still running when its next tick fires is skipped, not
// queued.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Add schedules a job with a standard 5-field cron expression.
func (s *Scheduler) Add(schedule string, job Job) error {
	s.mu.Lock()
	lock, ok := s.locks[job.Name()]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[job.Name()] = lock
	}
	s.mu.Unlock()

	_, err := s.cron.AddFunc(schedule, func() {
		if !lock.TryLock() {
			s.logger.Warn("job still running, skipping tick", "job", job.Name())
			return
		}
		defer lock.Unlock()

		start := time.Now()
		if err := job.Run(context.Background()); err != nil {
			s.logger.Error("job failed",
				"job", job.Name(),
				"duration", time.Since(start),
				"error", err)
			return
		}
		s.logger.Debug("job completed",
			"job", job.Name(),
			"duration", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("cron: schedule %s for %s: %w", schedule, job.Name(), err)
	}

	s.logger.Info("job scheduled", "job", job.Name(), "schedule", schedule)
	return nil
}

// Start begins dispatching ticks.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts dispatching and waits for running jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron: jobs did not finish: %w", ctx.Err())
	}
}
