package sqlite

import (
	"fmt"
	"path/filepath"
)

const defaultMaxTranscript = 1000

// Config holds the SQLite state module configuration.
type Config struct {
	// Path is the database file path. Defaults to <data_dir>/state.db.
	Path string `yaml:"path"`

	// MaxTranscript caps the number of transcript rows kept. Older rows are
	// trimmed as new exchanges arrive. Zero means the default; negative
	// disables trimming.
	MaxTranscript int `yaml:"max_transcript"`
}

func (c *Config) applyDefaults(dataDir string) {
	if c.Path == "" && dataDir != "" {
		c.Path = filepath.Join(dataDir, "state.db")
	}
	if c.MaxTranscript == 0 {
		c.MaxTranscript = defaultMaxTranscript
	}
}

func (c *Config) validate() error {
	if c.Path == "" {
		return fmt.Errorf("sqlite: path is required")
	}
	return nil
}
