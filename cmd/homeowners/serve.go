package main

import (
	"fmt"
	"log/slog"

	"github.com/nao1215/homeowners/internal/config"
	"github.com/nao1215/homeowners/internal/database"
	"github.com/nao1215/homeowners/internal/log"
	"github.com/nao1215/homeowners/internal/metrics"
	"github.com/nao1215/homeowners/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the CSV upload server",
		Long: `Serve starts an HTTP server with an upload form.

Routes:
  GET  /         upload form
  POST /upload   multipart "file" (.csv or .txt) and "csvHasHeader"
  GET  /healthz  liveness probe
  GET  /metrics  Prometheus metrics

The server shuts down gracefully on SIGINT or SIGTERM. Logs are written to
stderr as JSON.

Examples:
  # Listen on the default loopback address
  homeowners serve

  # Listen on all interfaces and keep every upload in the history database
  homeowners serve --listen :8080 --save`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP(config.FlagListen, "l", config.DefaultListenAddress,
		"Listen address in host:port form")
	cmd.Flags().Int64(config.FlagMaxUploadSize, config.DefaultMaxUploadSize,
		"Largest accepted upload in bytes")
	cmd.Flags().IntP(config.FlagConcurrency, "n", config.DefaultConcurrency,
		"Number of rows parsed at once per upload")
	cmd.Flags().Duration("shutdown-timeout", config.DefaultShutdownTimeout,
		"Time allowed for in-flight uploads on shutdown")
	cmd.Flags().BoolP(config.FlagSave, "s", false,
		"Save uploads to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	recorder, err := metrics.NewRecorder(metrics.NewRegistry())
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithAddress(cfg.ListenAddress),
		server.WithMaxUploadSize(cfg.MaxUploadSize),
		server.WithConcurrency(cfg.Concurrency),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
		server.WithRecorder(recorder),
		server.WithLogger(logger),
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
		opts = append(opts, server.WithStore(db))
	}

	return server.New(opts...).ListenAndServe(ctx)
}

// buildServeConfig creates a Config from cobra command flags and the
// configuration file.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.ListenAddress, err = cmd.Flags().GetString(config.FlagListen)
	if err != nil {
		return nil, err
	}

	cfg.MaxUploadSize, err = cmd.Flags().GetInt64(config.FlagMaxUploadSize)
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt(config.FlagConcurrency)
	if err != nil {
		return nil, err
	}

	cfg.ShutdownTimeout, err = cmd.Flags().GetDuration("shutdown-timeout")
	if err != nil {
		return nil, err
	}

	cfg.SaveToDB, err = cmd.Flags().GetBool(config.FlagSave)
	if err != nil {
		return nil, err
	}

	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}

	if err := applyConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
