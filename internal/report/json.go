package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/homeowners/internal/model"
)

// Response messages.
const (
	MessageSuccess = "All records processed successfully"
	MessagePartial = "Partial content processed"
)

// Response is the JSON document describing a processed batch. The upload
// endpoint returns it as the response body and the CLI prints it with --json.
type Response struct {
	Message        string           `json:"message"`
	ProcessedCount int              `json:"processed_count"`
	ErrorCount     int              `json:"error_count"`
	Data           []model.Person   `json:"data"`
	Errors         []model.RowError `json:"errors,omitempty"`
}

// NewResponse builds the Response for a batch result. Errors is only set when
// at least one row was rejected.
func NewResponse(result *model.BatchResult) *Response {
	if result == nil {
		result = model.NewBatchResult(nil, nil)
	}
	resp := &Response{
		Message:        MessageSuccess,
		ProcessedCount: result.ProcessedCount(),
		ErrorCount:     result.ErrorCount(),
		Data:           result.People,
	}
	if resp.Data == nil {
		resp.Data = []model.Person{}
	}
	if result.HasErrors() {
		resp.Message = MessagePartial
		resp.Errors = result.Errors
	}
	return resp
}

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the response document for the report.
func (w *JSONWriter) Write(report *model.ImportReport) (int, error) {
	return w.writeJSON(NewResponse(report.Result))
}

// WriteImport outputs the whole import record, including its identity and
// the steps that ran. The history command uses it for --show.
func (w *JSONWriter) WriteImport(report *model.ImportReport) (int, error) {
	if report.Error != nil && report.ErrorMessage == "" {
		report.ErrorMessage = report.Error.Error()
	}
	return w.writeJSON(report)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
