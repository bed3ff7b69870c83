package report

import (
	"io"

	"github.com/nao1215/homeowners/internal/model"
)

// Writer defines the interface for report output.
// Implementations write import results in various formats.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.ImportReport) (int, error)
}

// New returns the Writer for the given format name ("text", "json" or
// "markdown"). Unknown names fall back to the text writer.
func New(format string, output io.Writer) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output)
	}
}

// Format names accepted by New.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// result returns the batch result of the report, or an empty one when the
// pipeline stopped before parsing.
func result(report *model.ImportReport) *model.BatchResult {
	if report.Result == nil {
		return model.NewBatchResult(nil, nil)
	}
	return report.Result
}

// orDash renders an absent optional value.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
