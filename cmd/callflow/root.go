package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/callflow/internal/config"
	"github.com/aretw0/callflow/internal/logging"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "callflow",
	Short: "Callflow runs lead-qualification conversations for voice assistants",
	Long: `Callflow drives a voice assistant through a fixed graph of conversation steps:
recording consent, qualification, and booking a demo call on Cal.com.

Configuration comes from the environment (and an optional .env file); flags override it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFiles, _ := cmd.Flags().GetStringSlice("env-file")
		loaded, err := config.Load(envFiles...)
		if err != nil {
			return err
		}
		cfg = loaded

		if f := cmd.Flags().Lookup("flow"); f != nil && f.Changed {
			cfg.FlowFile = f.Value.String()
		}
		if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
			cfg.LogLevel = f.Value.String()
		}
		if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
			cfg.LogFormat = f.Value.String()
		}
		logger = logging.Named(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringSlice("env-file", []string{".env"}, "Dotenv files to load before reading the environment")
	rootCmd.PersistentFlags().String("flow", "", "YAML flow definition replacing the built-in lead-qualification flow")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text, pretty or json")
}
