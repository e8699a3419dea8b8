// Command telegram-assistant relays Telegram messages to the Google
// Assistant and sends the answers back.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Simonx22/telegram-assistant/internal/config"
	"github.com/Simonx22/telegram-assistant/pkg/app"

	// Module registrations.
	_ "github.com/Simonx22/telegram-assistant/internal/cron"
	_ "github.com/Simonx22/telegram-assistant/internal/gateway"
	_ "github.com/Simonx22/telegram-assistant/modules/assistant/google"
	_ "github.com/Simonx22/telegram-assistant/modules/channel/telegram"
	_ "github.com/Simonx22/telegram-assistant/modules/state/sqlite"
)

const configFileName = "telegram-assistant.yaml"

// Set via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	dataDir    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "telegram-assistant",
		Short:         "Google Assistant bridge for Telegram",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", defaultConfigPath(), "path to the configuration file")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "override the data directory")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newStartCmd(flags),
		newVersionCmd(),
		newConfigCmd(flags),
		newSetupCmd(flags),
		newServiceCmd(flags),
	)
	return root
}

func newStartCmd(flags *rootFlags) *cobra.Command {
	var overrides app.Overrides

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(app.Options{
				ConfigPath: flags.configPath,
				DataDir:    flags.dataDir,
				Verbose:    flags.verbose,
				Overrides:  overrides,
			})
		},
	}

	cmd.Flags().StringVar(&overrides.DeviceID, "device-id", "", "registered Assistant device instance ID")
	cmd.Flags().StringVar(&overrides.DeviceModelID, "device-model-id", "", "registered Assistant device model ID")
	cmd.Flags().StringVar(&overrides.CredentialsPath, "credentials-path", "", "path to the OAuth2 credentials file")
	cmd.Flags().StringVar(&overrides.Language, "lang", "", "query language (BCP-47, e.g. en-US)")
	cmd.Flags().StringVar(&overrides.Endpoint, "api-endpoint", "", "Assistant Service gRPC endpoint")
	cmd.Flags().DurationVar(&overrides.Deadline, "grpc-deadline", 0, "per-call gRPC deadline")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("telegram-assistant %s\n", version)
			fmt.Printf("  commit:  %s\n", commit)
			fmt.Printf("  built:   %s\n", date)
			fmt.Printf("  go:      %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			fmt.Printf("%s: OK (%d modules)\n", flags.configPath, len(cfg.Modules))
			return nil
		},
	})
	return cmd
}

// defaultConfigPath prefers the XDG config directory and falls back to the
// working directory when no config lives there yet.
func defaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return configFileName
		}
		configDir = filepath.Join(home, ".config")
	}
	candidate := filepath.Join(configDir, "telegram-assistant", configFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return configFileName
}
