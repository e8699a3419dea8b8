// Package sqlite persists conversation state and the exchange transcript in
// a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/Simonx22/telegram-assistant/internal/conversation"
	"github.com/Simonx22/telegram-assistant/internal/core"
)

// ModuleID is the registry identifier for the SQLite state module.
const ModuleID = "state.sqlite"

// Service names under which the stores are registered.
const (
	StateServiceName      = "state.store"
	TranscriptServiceName = "state.transcript"
)

func init() {
	core.RegisterModule(new(Module))
}

// Module is the SQLite-backed conversation state module.
type Module struct {
	cfg    Config
	logger *slog.Logger
	db     *sql.DB

	states      *StateStore
	transcripts *TranscriptStore
}

// Interface guards.
var (
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
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
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. It opens the database, runs
// migrations, and registers both stores.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.cfg.applyDefaults(ctx.DataDir)
	m.logger = ctx.Logger

	if err := m.cfg.validate(); err != nil {
		return err
	}

	db, err := open(m.cfg.Path)
	if err != nil {
		return err
	}

	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return err
	}

	m.db = db
	m.states = &StateStore{db: db}
	m.transcripts = &TranscriptStore{db: db, maxRows: m.cfg.MaxTranscript}

	ctx.RegisterService(StateServiceName, m.states)
	ctx.RegisterService(TranscriptServiceName, m.transcripts)

	m.logger.Info("state database ready", "path", filepath.Clean(m.cfg.Path))
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.cfg.validate()
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// States returns the state store. Nil before Provision.
func (m *Module) States() conversation.StateStore {
	return m.states
}

// Transcripts returns the transcript store. Nil before Provision.
func (m *Module) Transcripts() conversation.TranscriptStore {
	return m.transcripts
}

// open opens the SQLite database with WAL journaling and a busy timeout so
// concurrent relay workers do not trip over writer locks.
func open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// modernc's driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}
	return db, nil
}
