// Package cron runs periodic maintenance jobs: conversation state pruning
// and Assistant health probing.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Simonx22/telegram-assistant/internal/assistant"
	"github.com/Simonx22/telegram-assistant/internal/config"
	"github.com/Simonx22/telegram-assistant/internal/conversation"
	"github.com/Simonx22/telegram-assistant/internal/core"
)

// ModuleID is the registry identifier for the cron module.
const ModuleID = "cron.jobs"

func init() {
	core.RegisterModule(new(Module))
}

// Job is one schedulable unit of work. Run must be safe to call
// concurrently with itself; the scheduler skips overlapping runs anyway.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Config holds the cron module configuration.
type Config struct {
	// Prune controls conversation state pruning.
	Prune PruneConfig `yaml:"prune"`

	// Health controls the Assistant health probe.
	Health HealthConfig `yaml:"health"`
}

// PruneConfig configures the conversation prune job.
type PruneConfig struct {
	// Schedule is a cron expression. Empty disables the job.
	Schedule string `yaml:"schedule"`

	// MaxAge is how long an unused conversation is kept.
	MaxAge config.Duration `yaml:"max_age"`
}

// HealthConfig configures the Assistant health probe.
type HealthConfig struct {
	// Schedule is a cron expression. Empty disables the job.
	Schedule string `yaml:"schedule"`
}

func (c *Config) applyDefaults() {
	if c.Prune.Schedule == "" {
		c.Prune.Schedule = "17 3 * * *"
	}
	if c.Prune.MaxAge == 0 {
		c.Prune.MaxAge = config.Duration(30 * 24 * time.Hour)
	}
	if c.Health.Schedule == "" {
		c.Health.Schedule = "*/15 * * * *"
	}
}

// Module is the cron jobs module.
type Module struct {
	cfg       Config
	logger    *slog.Logger
	appCtx    *core.AppContext
	scheduler *Scheduler
}

// Interface guards.
var (
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return new(Module) },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.cfg); err != nil {
		return fmt.Errorf("cron: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.cfg.applyDefaults()
	m.logger = ctx.Logger
	m.appCtx = ctx
	m.scheduler = NewScheduler(ctx.Logger)
	return nil
}

// Start implements core.Starter. Job targets are resolved from the service
// registry here so module load order does not matter.
func (m *Module) Start() error {
	if svc, ok := m.appCtx.Service("state.store"); ok {
		if states, ok := svc.(conversation.StateStore); ok {
			job := &ConversationPruneJob{States: states, MaxAge: m.cfg.Prune.MaxAge.Std(), Logger: m.logger}
			if err := m.scheduler.Add(m.cfg.Prune.Schedule, job); err != nil {
				return err
			}
		}
	}

	if svc, ok := m.appCtx.Service("assistant.google"); ok {
		if hc, ok := svc.(assistant.HealthChecker); ok {
			job := &AssistantHealthJob{Checker: hc, Logger: m.logger}
			if err := m.scheduler.Add(m.cfg.Health.Schedule, job); err != nil {
				return err
			}
		}
	}

	m.scheduler.Start()
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	return m.scheduler.Stop(ctx)
}
