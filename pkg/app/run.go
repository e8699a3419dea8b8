// Package app assembles configuration, modules, and the relay into a
// running process.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Simonx22/telegram-assistant/internal/config"
	"github.com/Simonx22/telegram-assistant/internal/core"
	"github.com/Simonx22/telegram-assistant/internal/security"
	"github.com/Simonx22/telegram-assistant/internal/telemetry"
)

// Options carries command-line settings into the app.
type Options struct {
	// ConfigPath is the YAML configuration file.
	ConfigPath string

	// DataDir overrides the persistent data directory.
	DataDir string

	// Verbose enables debug logging.
	Verbose bool

	// Overrides are flag-level overrides applied on top of the config file.
	Overrides Overrides
}

// Run loads configuration, wires everything together, starts the modules,
// and blocks until a termination signal arrives. SIGHUP triggers a live
// reload of modules that support it.
func Run(opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := applyOverrides(cfg, opts.Overrides); err != nil {
		return err
	}

	redactor := security.NewRedactor()
	redactor.SyncCredentials(collectCredentials(cfg))

	logger := newLogger(os.Stderr, opts.Verbose, redactor)
	slog.SetDefault(logger)

	dataDir, err := resolveDataDir(opts.DataDir)
	if err != nil {
		return err
	}

	shutdownTraces, err := telemetry.Setup(context.Background(), telemetryConfig(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTraces(context.Background()); err != nil {
			logger.Warn("trace exporter shutdown failed", "error", err)
		}
	}()

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)
	application := core.NewApp(appCtx)

	registerSharedServices(appCtx)

	if err := application.LoadModules(cfg.ModuleIDs()); err != nil {
		return err
	}
	if err := wireRelay(application, appCtx, cfg, logger); err != nil {
		return err
	}

	if err := application.Start(); err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	for sig := range sigs {
		if sig == syscall.SIGHUP {
			logger.Info("reload requested")
			if err := reload(application, appCtx, opts); err != nil {
				logger.Error("reload failed", "error", err)
			}
			continue
		}
		logger.Info("shutting down", "signal", sig.String())
		break
	}

	application.Stop()
	return nil
}

// reload re-reads the config file and pushes the new module configs to
// every Reloader.
func reload(application *core.App, appCtx *core.AppContext, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := applyOverrides(cfg, opts.Overrides); err != nil {
		return err
	}
	return application.ReloadModules(appCtx.WithModuleConfigs(cfg.Modules))
}

// newLogger builds the redacting slog logger. Known credential shapes
// (bot tokens, OAuth tokens, client secrets) and the configured literal
// secrets are masked before any record reaches the sink.
func newLogger(w *os.File, verbose bool, redactor *security.Redactor) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// collectCredentials pulls secret values out of the loaded module configs
// so the redactor masks them even when they do not match a known token
// pattern.
func collectCredentials(cfg *config.Config) *security.CredentialStore {
	store := security.NewCredentialStore()

	if node, ok := cfg.Modules["channel.telegram"]; ok {
		var tg struct {
			Token   string `yaml:"token"`
			Webhook struct {
				SecretToken string `yaml:"secret_token"`
			} `yaml:"webhook"`
		}
		if err := node.Decode(&tg); err == nil {
			store.Set("telegram.token", tg.Token)
			store.Set("telegram.webhook_secret", tg.Webhook.SecretToken)
		}
	}

	if node, ok := cfg.Modules["gateway.http"]; ok {
		var gw struct {
			AuthToken string `yaml:"auth_token"`
		}
		if err := node.Decode(&gw); err == nil {
			store.Set("gateway.auth_token", gw.AuthToken)
		}
	}

	return store
}

// resolveDataDir picks the data directory: explicit flag, $XDG_DATA_HOME,
// or ~/.local/share, each suffixed with the app name. The directory is
// created if missing.
func resolveDataDir(override string) (string, error) {
	dir := override
	if dir == "" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "telegram-assistant")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("app: resolve home directory: %w", err)
			}
			dir = filepath.Join(home, ".local", "share", "telegram-assistant")
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("app: create data directory %s: %w", dir, err)
	}
	return dir, nil
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	if cfg.Telemetry == nil {
		return nil
	}
	return &telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
	}
}
