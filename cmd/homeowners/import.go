package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/homeowners/internal/config"
	"github.com/nao1215/homeowners/internal/database"
	"github.com/nao1215/homeowners/internal/log"
	"github.com/nao1215/homeowners/internal/metrics"
	"github.com/nao1215/homeowners/internal/model"
	"github.com/nao1215/homeowners/internal/pipeline"
	"github.com/nao1215/homeowners/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import homeowners from CSV files",
		Long: `Import reads the first column of every row as a homeowner name and parses it
into one or more people.

Rows that cannot be parsed are reported with their line number; the rest of
the file is still imported. The command exits with an error only when a file
cannot be read.

Examples:
  # Import a file whose first line is a header
  homeowners import --header examples.csv

  # Print the result as JSON, the same document the upload server returns
  homeowners import --json examples.csv

  # Keep the import in the history database
  homeowners import --save examples.csv

Configuration file (.homeowners) example:
  import:
    has_header: true
    concurrency: 8
    format: markdown
    save_history: true`,
		Args: cobra.ArbitraryArgs,
		RunE: runImportCmd,
	}

	cmd.Flags().BoolP(config.FlagHeader, "H", false,
		"Treat the first line of every file as a header")
	cmd.Flags().IntP(config.FlagConcurrency, "n", config.DefaultConcurrency,
		"Number of rows parsed at once")

	// Report flags
	cmd.Flags().BoolP(config.FlagJSON, "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP(config.FlagMarkdown, "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().BoolP(config.FlagSave, "s", false,
		"Save imports to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	cmd.Flags().String("metrics-file", "",
		"Write import metrics to this file in the Prometheus text format")

	return cmd
}

// runImportCmd executes the import command.
func runImportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildImportConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	return runImport(ctx, cmd, cfg, logger)
}

// buildImportConfig creates a Config from cobra command flags and the
// configuration file.
func buildImportConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.HasHeader, err = cmd.Flags().GetBool(config.FlagHeader)
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt(config.FlagConcurrency)
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool(config.FlagJSON)
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool(config.FlagMarkdown)
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
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

	cfg.MetricsFile, err = cmd.Flags().GetString("metrics-file")
	if err != nil {
		return nil, err
	}

	if err := applyConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Inputs = args

	return cfg, nil
}

// runImport runs every input through the import pipeline and writes a
// report per input.
func runImport(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting import",
		"inputs", len(cfg.Inputs),
		"concurrency", cfg.Concurrency,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.ImportDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	registry := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return err
	}

	output, closeOutput, err := openReportOutput(cmd.OutOrStdout(), cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOutput()

	writer := report.New(cfg.Format(), output)

	var failed int
	for _, input := range cfg.Inputs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rep := model.NewImportReport(input, cfg.HasHeader)
		p := createPipeline(cfg, db, recorder, logger)

		if err := p.Execute(ctx, rep); err != nil {
			recorder.ObserveImport(metrics.ChannelCLI, rep)
			logger.Error("import failed", "source", input, "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "Error processing file %s: %v\n", input, err)
			failed++
			continue
		}

		if len(rep.PreviousImports) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s was already imported %d time(s) (last import %s)\n",
				input, len(rep.PreviousImports), rep.PreviousImports[0])
		}

		if _, err := writer.Write(rep); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, registry); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) could not be imported", failed, len(cfg.Inputs))
	}
	return nil
}

// createPipeline builds the import pipeline for one input.
func createPipeline(cfg *config.Config, db *database.ImportDB, recorder *metrics.Recorder, logger *slog.Logger) *pipeline.Pipeline {
	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineConcurrency(cfg.Concurrency),
		pipeline.WithPipelineRecorder(recorder, metrics.ChannelCLI),
		pipeline.WithPipelineLogger(logger),
	}
	if db != nil {
		configOpts = append(configOpts, pipeline.WithPipelineStore(db))
	}

	return pipeline.DefaultPipeline([]pipeline.Option{pipeline.WithLogger(logger)}, configOpts...)
}

// openReportOutput returns the report destination: path when set, stdout
// otherwise.
func openReportOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports contain personal data and should only be readable by the owner
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path is provided by the user
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
