package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// WebhookReceiver handles update POSTs from the Telegram webhook delivery.
// It verifies the X-Telegram-Bot-Api-Secret-Token header when a secret is
// configured, responds immediately, and processes the update asynchronously
// so slow Assistant calls never stall Telegram's delivery queue.
type WebhookReceiver struct {
	secret string
	handle func(Update)
	logger *slog.Logger
}

// NewWebhookReceiver creates a webhook receiver.
func NewWebhookReceiver(secret string, handle func(Update), logger *slog.Logger) *WebhookReceiver {
	return &WebhookReceiver{
		secret: secret,
		handle: handle,
		logger: logger,
	}
}

// ServeHTTP implements http.Handler.
func (w *WebhookReceiver) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if w.secret != "" {
		got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(w.secret)) != 1 {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(rw, "read error", http.StatusBadRequest)
		return
	}

	var upd Update
	if err := json.Unmarshal(body, &upd); err != nil {
		w.logger.Warn("webhook update decode failed", "error", err)
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}

	rw.WriteHeader(http.StatusOK)

	go w.handle(upd)
}
