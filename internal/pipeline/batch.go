package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/homeowners/internal/model"
	"github.com/nao1215/homeowners/internal/parser"
	"golang.org/x/sync/errgroup"
)

// Messages recorded for rows rejected before they reach the parser.
const (
	// MsgEmptyNameField is the row error message for a blank name field.
	MsgEmptyNameField = "Empty name field"
)

// NameParser parses one homeowner name string into people.
// *parser.Parser is the production implementation.
type NameParser interface {
	Parse(input string) ([]model.Person, error)
}

// BatchProcessor turns rows of CSV fields into people, isolating failures to
// the row that caused them. The first field of each row is the name.
//
// A BatchProcessor holds no per-batch state and may be reused, including from
// several goroutines.
type BatchProcessor struct {
	// parser parses each row's name field.
	parser NameParser

	// concurrency is the maximum number of rows parsed at once by
	// ProcessContext. Process always runs sequentially.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of rows parsed concurrently by
// ProcessContext. Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithParser replaces the name parser.
func WithParser(p NameParser) BatchOption {
	return func(b *BatchProcessor) {
		if p != nil {
			b.parser = p
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor. By default it uses
// parser.New() and parses one row at a time.
func NewBatchProcessor(opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		parser:      parser.New(),
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// rowOutcome is what one row contributed to the batch.
type rowOutcome struct {
	people []model.Person
	err    *model.RowError
}

// Process parses rows in order. startLine is the file line number of rows[0]
// (1 without a header, 2 with one) and is used for error reporting.
//
// Process never fails: every row problem becomes a RowError in the result.
func (bp *BatchProcessor) Process(rows [][]string, startLine int) *model.BatchResult {
	start := time.Now()

	outcomes := make([]rowOutcome, len(rows))
	for i, row := range rows {
		outcomes[i] = bp.processRow(row, startLine+i)
	}

	result := assemble(outcomes)
	bp.logDone(len(rows), result, time.Since(start))
	return result
}

// ProcessContext is Process with rows parsed concurrently, up to the
// configured concurrency. Each row writes only its own slot and the result is
// assembled in row order, so the output is identical to Process.
//
// The only error returned is the context's error when it is cancelled before
// all rows are parsed; no partial result is returned in that case.
func (bp *BatchProcessor) ProcessContext(ctx context.Context, rows [][]string, startLine int) (*model.BatchResult, error) {
	start := time.Now()

	outcomes := make([]rowOutcome, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, row := range rows {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			outcomes[i] = bp.processRow(row, startLine+i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		bp.logger.Warn("batch processing cancelled",
			"rows", len(rows),
			"error", err,
		)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := assemble(outcomes)
	bp.logDone(len(rows), result, time.Since(start))
	return result, nil
}

// processRow parses a single row located at the given file line.
func (bp *BatchProcessor) processRow(row []string, line int) rowOutcome {
	input := ""
	if len(row) > 0 {
		input = strings.TrimSpace(row[0])
	}

	if input == "" {
		bp.logger.Debug("row rejected", "row", line, "reason", MsgEmptyNameField)
		return rowOutcome{err: &model.RowError{
			Row:     line,
			Input:   model.EmptyInputPlaceholder,
			Message: MsgEmptyNameField,
		}}
	}

	people, err := bp.parser.Parse(input)
	if err != nil {
		message := err.Error()
		var invalid *parser.InvalidNameError
		if errors.As(err, &invalid) {
			message = invalid.Message
		}

		bp.logger.Debug("row rejected", "row", line, "input", input, "reason", message)
		return rowOutcome{err: &model.RowError{
			Row:     line,
			Input:   input,
			Message: message,
		}}
	}

	return rowOutcome{people: people}
}

// assemble flattens per-row outcomes in row order.
func assemble(outcomes []rowOutcome) *model.BatchResult {
	var people []model.Person
	var errs []model.RowError

	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, *o.err)
			continue
		}
		people = append(people, o.people...)
	}

	return model.NewBatchResult(people, errs)
}

func (bp *BatchProcessor) logDone(rows int, result *model.BatchResult, elapsed time.Duration) {
	bp.logger.Info("batch processing complete",
		"rows", rows,
		"processed_count", result.ProcessedCount(),
		"error_count", result.ErrorCount(),
		"elapsed", elapsed,
	)
}
