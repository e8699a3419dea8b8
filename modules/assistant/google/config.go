package google

import (
	"fmt"
	"strings"
	"time"

	"github.com/Simonx22/telegram-assistant/internal/config"
)

const (
	defaultEndpoint = "embeddedassistant.googleapis.com:443"
	defaultLanguage = "en-US"

	// The Assistant Service closes idle streams just past three minutes,
	// so the client deadline sits slightly below that.
	defaultDeadline = 185 * time.Second
)

// Config holds the Google Assistant module configuration.
type Config struct {
	// Endpoint is the Assistant Service gRPC endpoint (host:port).
	Endpoint string `yaml:"endpoint"`

	// CredentialsPath points at the OAuth2 credentials file produced by
	// google-oauthlib-tool. Defaults to
	// <data_dir>/google-oauthlib-tool/credentials.json.
	CredentialsPath string `yaml:"credentials_path"`

	// Language is the BCP-47 language code for queries and replies.
	Language string `yaml:"language"`

	// DeviceID identifies the registered device instance. Required.
	DeviceID string `yaml:"device_id"`

	// DeviceModelID identifies the registered device model. Required.
	DeviceModelID string `yaml:"device_model_id"`

	// Deadline bounds each Assist call.
	Deadline config.Duration `yaml:"deadline"`

	// SendAudio enables capturing the synthesized spoken reply and
	// attaching it to the answer as a voice note.
	SendAudio bool `yaml:"send_audio"`
}

func (c *Config) applyDefaults(dataDir string) {
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.Language == "" {
		c.Language = defaultLanguage
	}
	if c.Deadline == 0 {
		c.Deadline = config.Duration(defaultDeadline)
	}
	if c.CredentialsPath == "" && dataDir != "" {
		c.CredentialsPath = dataDir + "/google-oauthlib-tool/credentials.json"
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DeviceID) == "" {
		return fmt.Errorf("google: device_id is required")
	}
	if strings.TrimSpace(c.DeviceModelID) == "" {
		return fmt.Errorf("google: device_model_id is required")
	}
	if c.CredentialsPath == "" {
		return fmt.Errorf("google: credentials_path is required")
	}
	if c.Deadline.Std() < time.Second {
		return fmt.Errorf("google: deadline must be at least 1s")
	}
	return nil
}
