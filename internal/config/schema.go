// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for telegram-assistant.
package config

import (
	"slices"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.telegram").
	Modules map[string]yaml.Node `yaml:"modules"`

	// Relay tunes the message pump between channels and the Assistant.
	Relay RelayConfig `yaml:"relay,omitempty"`

	// Telemetry holds optional trace export settings.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// ModuleIDs returns the configured module IDs in sorted order so modules
// load deterministically.
func (c *Config) ModuleIDs() []string {
	ids := make([]string, 0, len(c.Modules))
	for id := range c.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// RelayConfig tunes the relay worker pool. Zero values use the relay's
// defaults.
type RelayConfig struct {
	// Workers is the number of concurrent message processors.
	Workers int `yaml:"workers,omitempty"`

	// QueueSize bounds the inbound message queue.
	QueueSize int `yaml:"queue_size,omitempty"`
}

// TelemetryConfig controls OTLP trace export. Disabled when nil or when
// Endpoint is empty.
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector endpoint (host:port).
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS on the exporter connection.
	Insecure bool `yaml:"insecure,omitempty"`

	// ServiceName overrides the reported service.name resource attribute.
	ServiceName string `yaml:"service_name,omitempty"`
}
