package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/yaml.v3"

	"github.com/Simonx22/telegram-assistant/internal/assistant"
	"github.com/Simonx22/telegram-assistant/internal/channel"
	"github.com/Simonx22/telegram-assistant/internal/config"
	"github.com/Simonx22/telegram-assistant/internal/conversation"
	"github.com/Simonx22/telegram-assistant/internal/core"
	"github.com/Simonx22/telegram-assistant/internal/gateway"
	"github.com/Simonx22/telegram-assistant/internal/relay"
	"github.com/Simonx22/telegram-assistant/modules/channel/telegram"
)

// Overrides are CLI flag values that take precedence over the Assistant
// section of the config file.
type Overrides struct {
	DeviceID        string
	DeviceModelID   string
	CredentialsPath string
	Language        string
	Endpoint        string
	Deadline        time.Duration
}

func (o Overrides) empty() bool {
	return o == Overrides{}
}

// applyOverrides merges flag-level overrides into the assistant.google
// module config node.
func applyOverrides(cfg *config.Config, o Overrides) error {
	if o.empty() {
		return nil
	}

	settings := map[string]any{}
	if node, ok := cfg.Modules["assistant.google"]; ok {
		if err := node.Decode(&settings); err != nil {
			return fmt.Errorf("app: decode assistant config: %w", err)
		}
	}

	if o.DeviceID != "" {
		settings["device_id"] = o.DeviceID
	}
	if o.DeviceModelID != "" {
		settings["device_model_id"] = o.DeviceModelID
	}
	if o.CredentialsPath != "" {
		settings["credentials_path"] = o.CredentialsPath
	}
	if o.Language != "" {
		settings["language"] = o.Language
	}
	if o.Endpoint != "" {
		settings["endpoint"] = o.Endpoint
	}
	if o.Deadline != 0 {
		settings["deadline"] = o.Deadline.String()
	}

	var node yaml.Node
	if err := node.Encode(settings); err != nil {
		return fmt.Errorf("app: encode assistant config: %w", err)
	}
	if cfg.Modules == nil {
		cfg.Modules = make(map[string]yaml.Node)
	}
	cfg.Modules["assistant.google"] = node
	return nil
}

// registerSharedServices seeds the service registry with components that
// must exist before any module provisions: the metrics registry, the
// webhook dispatcher, and the relay event broadcaster.
func registerSharedServices(appCtx *core.AppContext) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appCtx.RegisterService(gateway.RegistryServiceName, registry)
	appCtx.RegisterService(gateway.WebhookServiceName, gateway.NewWebhookDispatcher())
	appCtx.RegisterService(gateway.EventsServiceName, relay.NewBroadcaster())
}

// wireRelay assembles the relay from loaded modules and appends it to the
// app lifecycle. Falls back to in-memory stores when the SQLite module is
// not configured.
func wireRelay(application *core.App, appCtx *core.AppContext, cfg *config.Config, logger *slog.Logger) error {
	mod, ok := application.Module("channel.telegram")
	if !ok {
		return errors.New("app: channel.telegram module not loaded")
	}
	tg, ok := mod.(*telegram.Telegram)
	if !ok {
		return fmt.Errorf("app: channel.telegram has unexpected type %T", mod)
	}

	svc, ok := appCtx.Service("assistant.google")
	if !ok {
		return errors.New("app: assistant.google service not registered")
	}
	backend, ok := svc.(assistant.Assistant)
	if !ok {
		return fmt.Errorf("app: assistant.google service has unexpected type %T", svc)
	}

	var states conversation.StateStore = conversation.NewMemStateStore()
	if svc, ok := appCtx.Service("state.store"); ok {
		if st, ok := svc.(conversation.StateStore); ok {
			states = st
		}
	}

	var transcripts conversation.TranscriptStore = conversation.NewMemTranscriptStore(0)
	if svc, ok := appCtx.Service("state.transcript"); ok {
		if tr, ok := svc.(conversation.TranscriptStore); ok {
			transcripts = tr
		}
	}
	if _, ok := appCtx.Service("state.store"); !ok {
		appCtx.RegisterService("state.store", states)
		appCtx.RegisterService("state.transcript", transcripts)
		logger.Warn("state.sqlite not configured, conversation state is in-memory only")
	}

	var events *relay.Broadcaster
	if svc, ok := appCtx.Service(gateway.EventsServiceName); ok {
		events, _ = svc.(*relay.Broadcaster)
	}

	var registry prometheus.Registerer
	if svc, ok := appCtx.Service(gateway.RegistryServiceName); ok {
		if reg, ok := svc.(*prometheus.Registry); ok {
			registry = reg
		}
	}

	dispatcher := channel.NewDispatcher()
	if err := dispatcher.Register("telegram", tg); err != nil {
		return err
	}
	appCtx.RegisterService("channel.dispatcher", dispatcher)

	r, err := relay.New(relay.Config{
		Workers:     cfg.Relay.Workers,
		QueueSize:   cfg.Relay.QueueSize,
		AllowList:   tg.AllowList(),
		Channels:    dispatcher,
		Assistant:   backend,
		States:      states,
		Transcripts: transcripts,
		Events:      events,
		Logger:      logger.With("component", "relay"),
		Registerer:  registry,
	})
	if err != nil {
		return err
	}

	tg.SetInbox(r.Submit)
	application.AppendModule("relay", &relayModule{Relay: r})
	return nil
}

// relayModule adapts the relay to the module lifecycle so core.App starts
// and stops it alongside registry modules.
type relayModule struct {
	*relay.Relay
}

func (m *relayModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "relay",
		New: func() core.Module { return &relayModule{} },
	}
}
