package config

import (
	"errors"
	"fmt"
)

// requiredModules must be present in every config: a relay without its
// Telegram side or its Assistant side cannot do anything.
var requiredModules = []string{"channel.telegram", "assistant.google"}

// Validate checks the structural soundness of a loaded configuration.
// Module-specific settings are validated later by each module's own
// Validate(); this only catches errors that would make loading pointless.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil configuration")
	}

	if cfg.Version != "" && cfg.Version != "1" {
		return fmt.Errorf("config: unsupported version %q (supported: 1)", cfg.Version)
	}

	if len(cfg.Modules) == 0 {
		return errors.New("config: no modules configured")
	}

	for _, id := range requiredModules {
		if _, ok := cfg.Modules[id]; !ok {
			return fmt.Errorf("config: required module %q is not configured", id)
		}
	}

	if cfg.Telemetry != nil && cfg.Telemetry.Endpoint == "" {
		return errors.New("config: telemetry block present but endpoint is empty")
	}

	return nil
}
