package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSetupCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactively create a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(flags.configPath)
		},
	}
}

func runSetup(path string) error {
	if _, err := os.Stat(path); err == nil {
		var overwrite bool
		confirm := huh.NewConfirm().
			Title(fmt.Sprintf("%s already exists. Overwrite?", path)).
			Value(&overwrite)
		if err := confirm.Run(); err != nil {
			return err
		}
		if !overwrite {
			return nil
		}
	}

	var (
		botToken      string
		userID        string
		deviceID      string
		deviceModelID string
		language      = "en-US"
		sendAudio     bool
		gatewayListen = "127.0.0.1:8080"
	)

	requireNumber := func(s string) error {
		if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
			return fmt.Errorf("must be a numeric ID")
		}
		return nil
	}
	required := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("required")
		}
		return nil
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("From @BotFather").
				EchoMode(huh.EchoModePassword).
				Value(&botToken).
				Validate(required),
			huh.NewInput().
				Title("Your Telegram user ID").
				Description("Numeric ID of the only user allowed to talk to the bot").
				Value(&userID).
				Validate(requireNumber),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Assistant device ID").
				Description("Registered device instance ID").
				Value(&deviceID).
				Validate(required),
			huh.NewInput().
				Title("Assistant device model ID").
				Description("Registered device model ID").
				Value(&deviceModelID).
				Validate(required),
			huh.NewInput().
				Title("Language").
				Value(&language).
				Validate(required),
			huh.NewConfirm().
				Title("Attach spoken replies as voice notes?").
				Value(&sendAudio),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Gateway listen address").
				Value(&gatewayListen).
				Validate(required),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	uid, _ := strconv.ParseInt(strings.TrimSpace(userID), 10, 64)

	cfg := map[string]any{
		"version": "1",
		"modules": map[string]any{
			"channel.telegram": map[string]any{
				"token":       botToken,
				"allow_users": []int64{uid},
			},
			"assistant.google": map[string]any{
				"device_id":       strings.TrimSpace(deviceID),
				"device_model_id": strings.TrimSpace(deviceModelID),
				"language":        language,
				"send_audio":      sendAudio,
			},
			"state.sqlite": map[string]any{},
			"gateway.http": map[string]any{
				"listen": gatewayListen,
			},
			"cron.jobs": map[string]any{},
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Next: place your OAuth credentials at <data-dir>/google-oauthlib-tool/credentials.json and run `telegram-assistant start`.")
	return nil
}
