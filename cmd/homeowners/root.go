package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/homeowners/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for homeowners.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "homeowners",
		Short: "Parse homeowner names from CSV files into structured people",
		Long: `homeowners parses free-text homeowner names such as "Mr & Mrs Smith" or
"Dr P. Gunn" into structured people with a title, first name, initial and
last name.

CSV files can be imported from the command line, or uploaded to the built-in
HTTP server. Imports can be kept in a local history database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .homeowners in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config flag from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// applyConfigFile overlays the configuration file onto cfg. Flags set on
// the command line win over the file.
//
// If the user explicitly specified a config file path, a missing file is an
// error. Otherwise the search locations are tried and a missing file is
// ignored.
func applyConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	cfg.ConfigFilePath = getConfigFlag(cmd)

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && cfg.ConfigFilePath == "" {
			return nil
		}
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	if err := cfg.ApplyFile(file, cmd.Flags().Changed); err != nil {
		return fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return nil
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
