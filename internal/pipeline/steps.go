package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/homeowners/internal/database"
	"github.com/nao1215/homeowners/internal/model"
	"github.com/nao1215/homeowners/internal/source"
)

// Step names.
const (
	StepRead    = "read"
	StepParse   = "parse"
	StepHistory = "history"
	StepMetrics = "metrics"
)

// ErrNoRows is returned by ParseStep when no step has read any rows.
var ErrNoRows = errors.New("no rows to parse")

// Opener opens the raw bytes of the report's source.
type Opener func(ctx context.Context, report *model.ImportReport) (io.ReadCloser, error)

// FileOpener opens report.Source as a file path.
func FileOpener(_ context.Context, report *model.ImportReport) (io.ReadCloser, error) {
	f, err := os.Open(report.Source) //nolint:gosec // path is provided by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", report.Source, err)
	}
	return f, nil
}

// ReaderOpener returns an Opener that hands out r once. It suits sources
// that are already open, such as an uploaded multipart file.
func ReaderOpener(r io.Reader) Opener {
	return func(context.Context, *model.ImportReport) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	}
}

// ReadStep decodes the CSV source into rows and fills in the report's
// Rows, StartLine and Checksum.
type ReadStep struct {
	// opener provides the raw source bytes.
	opener Opener

	// logger for structured logging.
	logger *slog.Logger
}

// ReadStepOption configures a ReadStep.
type ReadStepOption func(*ReadStep)

// WithOpener replaces the default FileOpener.
func WithOpener(opener Opener) ReadStepOption {
	return func(s *ReadStep) {
		if opener != nil {
			s.opener = opener
		}
	}
}

// WithReadLogger sets a custom logger for the read step.
func WithReadLogger(logger *slog.Logger) ReadStepOption {
	return func(s *ReadStep) {
		s.logger = logger
	}
}

// NewReadStep creates a new read step.
func NewReadStep(opts ...ReadStepOption) *ReadStep {
	s := &ReadStep{
		opener: FileOpener,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ReadStep) Name() string {
	return StepRead
}

// Do executes the read step.
func (s *ReadStep) Do(ctx context.Context, report *model.ImportReport) error {
	rc, err := s.opener(ctx, report)
	if err != nil {
		return err
	}
	defer rc.Close()

	rows, err := source.Read(rc, report.HasHeader)
	if err != nil {
		return err
	}

	report.Rows = rows.Records
	report.StartLine = rows.StartLine
	report.Checksum = rows.Checksum

	s.logger.Debug("source decoded",
		"source", report.Source,
		"rows", rows.Len(),
		"start_line", rows.StartLine,
	)

	return nil
}

// ParseStep runs the report's rows through a BatchProcessor.
type ParseStep struct {
	processor *BatchProcessor
}

// NewParseStep creates a new parse step.
func NewParseStep(processor *BatchProcessor) *ParseStep {
	if processor == nil {
		processor = NewBatchProcessor()
	}
	return &ParseStep{processor: processor}
}

// Name returns the step name.
func (s *ParseStep) Name() string {
	return StepParse
}

// Do executes the parse step. Row failures end up in report.Result; the only
// errors returned are a missing read and cancellation.
func (s *ParseStep) Do(ctx context.Context, report *model.ImportReport) error {
	if report.Rows == nil {
		return ErrNoRows
	}

	result, err := s.processor.ProcessContext(ctx, report.Rows, report.StartLine)
	if err != nil {
		return err
	}

	report.Result = result
	return nil
}

// ImportStore persists finished imports. *database.ImportDB implements it.
type ImportStore interface {
	SaveImport(ctx context.Context, report *model.ImportReport) error
	FindImportsByChecksum(ctx context.Context, checksum string) ([]database.ImportSummary, error)
}

// HistoryStep saves the report to the import history. Earlier imports of the
// same bytes are listed in report.PreviousImports.
type HistoryStep struct {
	// store receives the report.
	store ImportStore

	// logger for structured logging.
	logger *slog.Logger
}

// HistoryStepOption configures a HistoryStep.
type HistoryStepOption func(*HistoryStep)

// WithHistoryLogger sets a custom logger for the history step.
func WithHistoryLogger(logger *slog.Logger) HistoryStepOption {
	return func(s *HistoryStep) {
		s.logger = logger
	}
}

// NewHistoryStep creates a new history step.
func NewHistoryStep(store ImportStore, opts ...HistoryStepOption) *HistoryStep {
	s := &HistoryStep{
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return StepHistory
}

// Do executes the history step.
func (s *HistoryStep) Do(ctx context.Context, report *model.ImportReport) error {
	if report.Checksum != "" {
		previous, err := s.store.FindImportsByChecksum(ctx, report.Checksum)
		if err != nil {
			return fmt.Errorf("failed to check import history: %w", err)
		}

		report.PreviousImports = nil
		for _, p := range previous {
			report.PreviousImports = append(report.PreviousImports, p.ID)
		}
		if len(previous) > 0 {
			s.logger.Warn("source was already imported",
				"source", report.Source,
				"previous_import", previous[0].ID,
				"previous_count", len(previous),
			)
		}
	}

	if err := s.store.SaveImport(ctx, report); err != nil {
		return fmt.Errorf("failed to save import history: %w", err)
	}

	s.logger.Debug("import saved", "id", report.ID)
	return nil
}

// ImportRecorder observes finished imports. *metrics.Recorder implements it.
type ImportRecorder interface {
	ObserveImport(channel string, report *model.ImportReport)
}

// MetricsStep records the import with an ImportRecorder. It only runs when
// the earlier steps succeeded; callers record failed imports themselves.
type MetricsStep struct {
	recorder ImportRecorder
	channel  string
}

// NewMetricsStep creates a new metrics step for the given channel.
func NewMetricsStep(recorder ImportRecorder, channel string) *MetricsStep {
	return &MetricsStep{
		recorder: recorder,
		channel:  channel,
	}
}

// Name returns the step name.
func (s *MetricsStep) Name() string {
	return StepMetrics
}

// Do executes the metrics step.
func (s *MetricsStep) Do(_ context.Context, report *model.ImportReport) error {
	s.recorder.ObserveImport(s.channel, report)
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// Opener provides the source bytes. Nil means FileOpener.
	Opener Opener

	// Concurrency is the number of rows parsed at once.
	Concurrency int

	// Store enables the history step when set.
	Store ImportStore

	// Recorder enables the metrics step when set.
	Recorder ImportRecorder

	// Channel labels the import for metrics.
	Channel string

	// Logger is shared by the steps. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultPipelineOption configures the default pipeline.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineOpener sets the source opener.
func WithPipelineOpener(opener Opener) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Opener = opener
	}
}

// WithPipelineConcurrency sets the number of rows parsed at once.
func WithPipelineConcurrency(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Concurrency = n
	}
}

// WithPipelineStore enables saving imports to store.
func WithPipelineStore(store ImportStore) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Store = store
	}
}

// WithPipelineRecorder enables recording imports with recorder.
func WithPipelineRecorder(recorder ImportRecorder, channel string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Recorder = recorder
		c.Channel = channel
	}
}

// WithPipelineLogger sets the logger used by the steps.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline creates the standard import pipeline:
// read, parse, then history and metrics when configured.
//
// The first parameter accepts pipeline options (WithLogger, etc).
// The variadic parameter accepts step configuration.
func DefaultPipeline(pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		Opener:      FileOpener,
		Concurrency: 1,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p.AddSteps(
		NewReadStep(WithOpener(cfg.Opener), WithReadLogger(logger)),
		NewParseStep(NewBatchProcessor(
			WithConcurrency(cfg.Concurrency),
			WithBatchLogger(logger),
		)),
	)

	if cfg.Store != nil {
		p.AddStep(NewHistoryStep(cfg.Store, WithHistoryLogger(logger)))
	}
	if cfg.Recorder != nil {
		p.AddStep(NewMetricsStep(cfg.Recorder, cfg.Channel))
	}

	return p
}
