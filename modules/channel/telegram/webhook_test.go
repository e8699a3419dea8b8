package telegram

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookReceiver(t *testing.T) {
	t.Parallel()

	delivered := make(chan Update, 1)
	recv := NewWebhookReceiver("hunter2", func(u Update) { delivered <- u }, discardLogger())

	tests := []struct {
		name       string
		method     string
		secret     string
		body       string
		wantStatus int
	}{
		{"valid update", http.MethodPost, "hunter2", `{"update_id":7}`, http.StatusOK},
		{"wrong secret", http.MethodPost, "nope", `{"update_id":8}`, http.StatusForbidden},
		{"missing secret", http.MethodPost, "", `{"update_id":9}`, http.StatusForbidden},
		{"get rejected", http.MethodGet, "hunter2", "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "hunter2", "{not json", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/webhooks/telegram", strings.NewReader(tt.body))
			if tt.secret != "" {
				req.Header.Set("X-Telegram-Bot-Api-Secret-Token", tt.secret)
			}
			rec := httptest.NewRecorder()
			recv.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	select {
	case u := <-delivered:
		if u.UpdateID != 7 {
			t.Errorf("delivered update %d, want 7", u.UpdateID)
		}
	case <-time.After(time.Second):
		t.Fatal("valid update was not handed off")
	}
	select {
	case u := <-delivered:
		t.Errorf("rejected request reached the handler: %+v", u)
	default:
	}
}

func TestWebhookReceiverNoSecret(t *testing.T) {
	t.Parallel()

	delivered := make(chan Update, 1)
	recv := NewWebhookReceiver("", func(u Update) { delivered <- u }, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/telegram", strings.NewReader(`{"update_id":1}`))
	rec := httptest.NewRecorder()
	recv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("update was not handed off")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		c := Config{Token: "12345:abc", AllowUsers: []int64{100}}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults pass", func(c *Config) {}, ""},
		{"missing token", func(c *Config) { c.Token = " " }, "token is required"},
		{"bad mode", func(c *Config) { c.Mode = "carrier-pigeon" }, "invalid mode"},
		{"webhook needs url", func(c *Config) { c.Mode = "webhook" }, "webhook.url is required"},
		{"webhook needs https", func(c *Config) {
			c.Mode = "webhook"
			c.Webhook.URL = "http://example.com/hook"
		}, "must use https"},
		{"no allowed users", func(c *Config) { c.AllowUsers = nil }, "allow_users"},
		{"polling timeout too high", func(c *Config) { c.PollingTimeout = 120 }, "polling_timeout"},
		{"polling timeout above client budget", func(c *Config) { c.PollingTimeout = 75 }, "polling_timeout"},
		{"polling timeout at cap", func(c *Config) { c.PollingTimeout = 50 }, ""},
		{"message length too high", func(c *Config) { c.MaxMessageLength = 9000 }, "max_message_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
