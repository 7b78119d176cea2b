package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/logicloom/internal/cli"
	"github.com/aretw0/logicloom/internal/config"
	"github.com/aretw0/logicloom/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "logicloom",
	Short: "LogicLoom is a staged programming tutor",
	Long: `LogicLoom walks a learner from a real-life scenario to working Python code,
one tutoring turn at a time. Settings come from the environment (and .env).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("prompts", "", "Directory holding the handler prompt files (overrides LOGICLOOM_PROMPTS_DIR)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging and lifecycle traces")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if dir, _ := cmd.Flags().GetString("prompts"); dir != "" {
		cfg.PromptsDir = dir
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) (*slog.Logger, bool) {
	debug, _ := cmd.Flags().GetBool("debug")
	format, _ := cmd.Flags().GetString("log-format")
	return cli.NewLogger(debug, logging.ParseFormat(format)), debug
}
