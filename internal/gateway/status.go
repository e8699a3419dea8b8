package gateway

import (
	"net/http"
	"strconv"
	"time"
)

type statusResponse struct {
	Uptime         string `json:"uptime"`
	Conversations  int    `json:"conversations"`
	WebhookSources int    `json:"webhook_sources"`
	Subscribers    int    `json:"subscribers"`
	StartedAt      string `json:"started_at"`
}

func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Uptime:         time.Since(g.startedAt).Round(time.Second).String(),
		WebhookSources: len(g.webhooks.Sources()),
		StartedAt:      g.startedAt.UTC().Format(time.RFC3339),
	}

	if g.states != nil {
		if n, err := g.states.Len(r.Context()); err == nil {
			resp.Conversations = n
		}
	}
	if g.events != nil {
		resp.Subscribers = g.events.Subscribers()
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleTranscript returns recent relayed exchanges, newest first.
// Query parameters: chat_id (optional filter), limit (default 50, max 500).
func (g *Gateway) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if g.transcripts == nil {
		http.Error(w, "transcript store not available", http.StatusNotFound)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	exchanges, err := g.transcripts.Recent(r.Context(), r.URL.Query().Get("chat_id"), limit)
	if err != nil {
		g.logger.Error("transcript query failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"exchanges": exchanges,
		"count":     len(exchanges),
	})
}
