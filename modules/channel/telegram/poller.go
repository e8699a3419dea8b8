package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Poller fetches updates via long polling and hands each one to a callback.
type Poller struct {
	client  *Client
	timeout int
	handle  func(Update)
	logger  *slog.Logger

	offset int
}

// NewPoller creates a poller with the given long-polling timeout in seconds.
func NewPoller(client *Client, timeout int, handle func(Update), logger *slog.Logger) *Poller {
	return &Poller{
		client:  client,
		timeout: timeout,
		handle:  handle,
		logger:  logger,
	}
}

// Run polls for updates until ctx is cancelled. Transient API errors are
// logged and polling resumes after a short backoff.
func (p *Poller) Run(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := p.client.GetUpdates(ctx, GetUpdatesRequest{
			Offset:         p.offset,
			Timeout:        p.timeout,
			AllowedUpdates: []string{"message"},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			p.logger.Warn("getUpdates failed", "error", err, "backoff", backoff)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, upd := range updates {
			if upd.UpdateID >= p.offset {
				p.offset = upd.UpdateID + 1
			}
			p.handle(upd)
		}
	}
}
