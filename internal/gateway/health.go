package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type healthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth reports liveness plus an active Assistant credential check
// when the backend supports probing.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(g.startedAt).Round(time.Second).String(),
		Checks: map[string]string{},
	}

	code := http.StatusOK
	if g.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := g.health.HealthCheck(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks["assistant"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			resp.Checks["assistant"] = "ok"
		}
	}

	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
