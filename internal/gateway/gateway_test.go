package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Simonx22/telegram-assistant/internal/conversation"
	"github.com/Simonx22/telegram-assistant/internal/relay"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeHealth struct {
	err error
}

func (f *fakeHealth) HealthCheck(ctx context.Context) error {
	return f.err
}

func testGateway(t *testing.T) *Gateway {
	t.Helper()
	g := &Gateway{
		cfg:         Config{AuthToken: "sekret"},
		logger:      discardLogger(),
		webhooks:    NewWebhookDispatcher(),
		registry:    prometheus.NewRegistry(),
		states:      conversation.NewMemStateStore(),
		transcripts: conversation.NewMemTranscriptStore(16),
		events:      relay.NewBroadcaster(),
		startedAt:   time.Now(),
	}
	g.cfg.applyDefaults()
	return g
}

func TestHealthOK(t *testing.T) {
	t.Parallel()
	g := testGateway(t)
	g.health = &fakeHealth{}

	srv := httptest.NewServer(g.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Checks["assistant"] != "ok" {
		t.Errorf("body = %+v", body)
	}
}

func TestHealthDegraded(t *testing.T) {
	t.Parallel()
	g := testGateway(t)
	g.health = &fakeHealth{err: errors.New("token refresh failed")}

	srv := httptest.NewServer(g.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestMetricsServed(t *testing.T) {
	t.Parallel()
	g := testGateway(t)

	srv := httptest.NewServer(g.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestWebhookRouting(t *testing.T) {
	t.Parallel()
	g := testGateway(t)

	var hit bool
	g.webhooks.RegisterSource("telegram", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.WriteHeader(http.StatusOK)
	}))

	srv := httptest.NewServer(g.routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/webhooks/telegram", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if !hit {
		t.Error("registered webhook handler was not invoked")
	}

	resp, err = http.Post(srv.URL+"/webhooks/unknown", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown source status = %d, want 404", resp.StatusCode)
	}
}

func TestStatusRequiresBearer(t *testing.T) {
	t.Parallel()
	g := testGateway(t)

	srv := httptest.NewServer(g.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/status", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", resp.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.StartedAt == "" {
		t.Error("status body missing started_at")
	}
}

func TestStatusDisabledWithoutToken(t *testing.T) {
	t.Parallel()
	g := testGateway(t)
	g.cfg.AuthToken = ""

	srv := httptest.NewServer(g.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403 when no token configured", resp.StatusCode)
	}
}

func TestTranscriptEndpoint(t *testing.T) {
	t.Parallel()
	g := testGateway(t)
	_ = g.transcripts.Append(context.Background(), conversation.Exchange{
		ChatID: "42", Query: "q", Reply: "r", Timestamp: time.Now(),
	})

	srv := httptest.NewServer(g.routes())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/status/transcript?chat_id=42", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/status/transcript?limit=bogus", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", resp.StatusCode)
	}
}
