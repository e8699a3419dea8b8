package telegram

import (
	"fmt"
	"strings"
)

const (
	defaultAPIURL         = "https://api.telegram.org"
	defaultPollingTimeout = 30
	defaultMaxMessageLen  = 4096
)

// Config holds the Telegram channel configuration.
type Config struct {
	// Token is the bot token from @BotFather.
	Token string `yaml:"token"`

	// Mode selects how updates are received: "polling" (default) or "webhook".
	Mode string `yaml:"mode"`

	// APIURL overrides the Bot API base URL. Used in tests and for
	// self-hosted Bot API servers.
	APIURL string `yaml:"api_url"`

	// PollingTimeout is the long polling timeout in seconds.
	PollingTimeout int `yaml:"polling_timeout"`

	// Webhook configures webhook mode. Ignored when Mode is "polling".
	Webhook WebhookConfig `yaml:"webhook"`

	// AllowUsers lists Telegram user IDs permitted to talk to the bot.
	// At least one entry is required.
	AllowUsers []int64 `yaml:"allow_users"`

	// AllowChats lists group chat IDs the bot will serve. A group chat is
	// also served when any member of AllowUsers belongs to it.
	AllowChats []int64 `yaml:"allow_chats"`

	// MaxMessageLength caps outgoing message size before chunking.
	MaxMessageLength int `yaml:"max_message_length"`
}

// WebhookConfig holds webhook-mode settings.
type WebhookConfig struct {
	// URL is the public HTTPS URL Telegram will post updates to.
	URL string `yaml:"url"`

	// SecretToken is sent back by Telegram in the
	// X-Telegram-Bot-Api-Secret-Token header and verified on every update.
	SecretToken string `yaml:"secret_token"`
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "polling"
	}
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.PollingTimeout == 0 {
		c.PollingTimeout = defaultPollingTimeout
	}
	if c.MaxMessageLength == 0 {
		c.MaxMessageLength = defaultMaxMessageLen
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("telegram: token is required")
	}
	switch c.Mode {
	case "polling", "webhook":
	default:
		return fmt.Errorf("telegram: invalid mode %q (must be polling or webhook)", c.Mode)
	}
	if c.Mode == "webhook" {
		if c.Webhook.URL == "" {
			return fmt.Errorf("telegram: webhook.url is required in webhook mode")
		}
		if !strings.HasPrefix(c.Webhook.URL, "https://") {
			return fmt.Errorf("telegram: webhook.url must use https")
		}
	}
	if len(c.AllowUsers) == 0 {
		return fmt.Errorf("telegram: allow_users must list at least one user ID")
	}
	// Must stay below the client's 60s HTTP timeout, or every long poll
	// aborts client-side before the server responds.
	if c.PollingTimeout < 0 || c.PollingTimeout > 50 {
		return fmt.Errorf("telegram: polling_timeout must be between 0 and 50 seconds")
	}
	if c.MaxMessageLength < 1 || c.MaxMessageLength > 4096 {
		return fmt.Errorf("telegram: max_message_length must be between 1 and 4096")
	}
	return nil
}
