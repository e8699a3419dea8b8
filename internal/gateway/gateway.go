// Package gateway exposes the local HTTP surface: health, metrics, webhook
// ingress, the status API, and the live event stream.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/Simonx22/telegram-assistant/internal/assistant"
	"github.com/Simonx22/telegram-assistant/internal/conversation"
	"github.com/Simonx22/telegram-assistant/internal/core"
	"github.com/Simonx22/telegram-assistant/internal/relay"
)

// ModuleID is the registry identifier for the HTTP gateway.
const ModuleID = "gateway.http"

// Service names the gateway consumes from the registry.
const (
	WebhookServiceName  = "gateway.webhooks"
	RegistryServiceName = "metrics.registry"
	EventsServiceName   = "relay.events"
)

func init() {
	core.RegisterModule(new(Gateway))
}

// Config holds the gateway configuration.
type Config struct {
	// Listen is the address the HTTP server binds to.
	// Defaults to 127.0.0.1:8080; bind a public address deliberately.
	Listen string `yaml:"listen"`

	// AuthToken protects /status and /ws/events. Empty disables them.
	AuthToken string `yaml:"auth_token"`

	// DisableMetrics removes the /metrics endpoint.
	DisableMetrics bool `yaml:"disable_metrics"`
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
}

// Gateway is the HTTP gateway module.
type Gateway struct {
	cfg    Config
	logger *slog.Logger
	appCtx *core.AppContext

	webhooks *WebhookDispatcher
	srv      *http.Server

	// Collaborators resolved from the service registry at Start.
	registry    *prometheus.Registry
	health      assistant.HealthChecker
	states      conversation.StateStore
	transcripts conversation.TranscriptStore
	events      *relay.Broadcaster

	startedAt time.Time
}

// Interface guards.
var (
	_ core.Module       = (*Gateway)(nil)
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return new(Gateway) },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.cfg); err != nil {
		return fmt.Errorf("gateway: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.cfg.applyDefaults()
	g.logger = ctx.Logger
	g.appCtx = ctx

	if svc, ok := ctx.Service(WebhookServiceName); ok {
		if wd, ok := svc.(*WebhookDispatcher); ok {
			g.webhooks = wd
		}
	}
	if g.webhooks == nil {
		g.webhooks = NewWebhookDispatcher()
		ctx.RegisterService(WebhookServiceName, g.webhooks)
	}

	ctx.RegisterService(ModuleID, g)
	return nil
}

// Start implements core.Starter. Collaborators registered by other modules
// are resolved here, after every module has provisioned.
func (g *Gateway) Start() error {
	g.resolveServices()
	g.startedAt = time.Now()

	g.srv = &http.Server{
		Addr:              g.cfg.Listen,
		Handler:           g.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := g.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway server failed", "error", err)
		}
	}()

	g.logger.Info("gateway listening", "addr", g.cfg.Listen)
	return nil
}

// Stop implements core.Stopper.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.srv == nil {
		return nil
	}
	return g.srv.Shutdown(ctx)
}

func (g *Gateway) resolveServices() {
	if svc, ok := g.appCtx.Service(RegistryServiceName); ok {
		if reg, ok := svc.(*prometheus.Registry); ok {
			g.registry = reg
		}
	}
	if svc, ok := g.appCtx.Service("assistant.google"); ok {
		if hc, ok := svc.(assistant.HealthChecker); ok {
			g.health = hc
		}
	}
	if svc, ok := g.appCtx.Service("state.store"); ok {
		if st, ok := svc.(conversation.StateStore); ok {
			g.states = st
		}
	}
	if svc, ok := g.appCtx.Service("state.transcript"); ok {
		if tr, ok := svc.(conversation.TranscriptStore); ok {
			g.transcripts = tr
		}
	}
	if svc, ok := g.appCtx.Service(EventsServiceName); ok {
		if ev, ok := svc.(*relay.Broadcaster); ok {
			g.events = ev
		}
	}
}

func (g *Gateway) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", g.handleHealth)

	if !g.cfg.DisableMetrics && g.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{}))
	}

	r.Post("/webhooks/{source}", g.handleWebhook)

	r.Group(func(r chi.Router) {
		auth := func(next http.Handler) http.Handler {
			return requireBearer(g.cfg.AuthToken, next)
		}
		r.Use(auth)
		r.Get("/status", g.handleStatus)
		r.Get("/status/transcript", g.handleTranscript)
		r.Get("/ws/events", g.handleEvents)
	})

	return r
}

func (g *Gateway) handleWebhook(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	handler, ok := g.webhooks.Handler(source)
	if !ok {
		http.Error(w, "unknown webhook source", http.StatusNotFound)
		return
	}
	handler.ServeHTTP(w, r)
}
