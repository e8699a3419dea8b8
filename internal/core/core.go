package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App owns the ordered set of loaded modules and drives their lifecycle.
type App struct {
	ctx    *AppContext
	loaded []loadedModule
	logger *slog.Logger
}

type loadedModule struct {
	id      ModuleID
	module  Module
	started bool
}

// NewApp creates an App around the given context.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// LoadModules instantiates, configures, provisions, and validates the
// modules named by ids, in order. A failure anywhere unwinds the modules
// loaded so far.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.unwind()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		a.loaded = append(a.loaded, loadedModule{
			id:     mod.ModuleInfo().ID,
			module: mod,
		})
		a.logger.Info("module loaded", "module", id)
	}
	return nil
}

// AppendModule adds an already-constructed module to the app lifecycle.
// Used for components assembled during wiring (e.g. the relay) rather than
// loaded from the registry.
func (a *App) AppendModule(id ModuleID, mod Module) {
	a.loaded = append(a.loaded, loadedModule{id: id, module: mod})
}

// Module returns the loaded module with the given ID, or false if none.
func (a *App) Module(id string) (Module, bool) {
	for i := range a.loaded {
		if string(a.loaded[i].id) == id {
			return a.loaded[i].module, true
		}
	}
	return nil, false
}

// Start runs Start on every module that implements Starter, in load order.
// When one fails, the modules started before it are stopped again in
// reverse order and the error is returned.
func (a *App) Start() error {
	for i := range a.loaded {
		lm := &a.loaded[i]
		s, ok := lm.module.(Starter)
		if !ok {
			continue
		}
		a.logger.Info("starting module", "module", string(lm.id))
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(lm.id), "error", err)
			a.stopFrom(i - 1)
			return fmt.Errorf("starting module %s: %w", lm.id, err)
		}
		lm.started = true
	}
	a.logger.Info("all modules started")
	return nil
}

// Stop stops every started module in reverse order, bounded by the
// shutdown timeout.
func (a *App) Stop() {
	a.stopFrom(len(a.loaded) - 1)
}

func (a *App) stopFrom(index int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := index; i >= 0; i-- {
		lm := &a.loaded[i]
		if !lm.started {
			continue
		}
		if s, ok := lm.module.(Stopper); ok {
			a.logger.Info("stopping module", "module", string(lm.id))
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("module stop error", "module", string(lm.id), "error", err)
			}
		}
		lm.started = false
	}
}

// unwind releases modules after a load failure. Nothing has started yet,
// but provisioned modules may hold resources (an open database, a dialed
// connection), so Stoppers still run.
func (a *App) unwind() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(a.loaded) - 1; i >= 0; i-- {
		if s, ok := a.loaded[i].module.(Stopper); ok {
			_ = s.Stop(ctx)
		}
	}
	a.loaded = nil
}

// ReloadModules pushes the new context to every module that implements
// Reloader. Modules that fail are collected into a joined error; the rest
// still reload.
func (a *App) ReloadModules(ctx *AppContext) error {
	var errs []error
	for i := range a.loaded {
		lm := &a.loaded[i]
		r, ok := lm.module.(Reloader)
		if !ok {
			continue
		}
		a.logger.Info("reloading module", "module", string(lm.id))
		if err := r.Reload(ctx.ForModule(lm.id)); err != nil {
			a.logger.Error("module reload failed", "module", string(lm.id), "error", err)
			errs = append(errs, fmt.Errorf("reloading module %s: %w", lm.id, err))
		}
	}
	return errors.Join(errs...)
}
