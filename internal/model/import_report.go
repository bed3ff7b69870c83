package model

import (
	"time"

	"github.com/google/uuid"
)

// ImportReport is the record of one CSV source run through the import
// pipeline. It is filled in step by step: the read step sets the rows,
// the parse step sets Result, and later steps only read it.
type ImportReport struct {
	// === Identity ===

	// ID uniquely identifies this import run across the history database.
	ID string `json:"id"`

	// Source is the file path or upload file name the rows came from.
	Source string `json:"source"`

	// Checksum is the hex SHA3-256 digest of the raw source bytes.
	// Identical files produce identical checksums, which lets the history
	// database detect repeated imports.
	Checksum string `json:"checksum,omitempty"`

	// DateImported is when the import started.
	DateImported time.Time `json:"date_imported"`

	// Duration is how long the pipeline took.
	Duration time.Duration `json:"duration"`

	// === Input ===

	// HasHeader records whether the first CSV line was a header.
	HasHeader bool `json:"has_header"`

	// StartLine is the file line number of Rows[0]: 1 without a header,
	// 2 with one.
	StartLine int `json:"start_line"`

	// Rows are the decoded CSV records. They are not serialized; the
	// result carries everything worth keeping.
	Rows [][]string `json:"-"`

	// === Output ===

	// Result is the outcome of parsing Rows.
	Result *BatchResult `json:"result,omitempty"`

	// PreviousImports holds the IDs of earlier imports with the same
	// checksum, newest first.
	PreviousImports []string `json:"previous_imports,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Cancelled is set when the context was cancelled before all steps ran.
	Cancelled bool `json:"cancelled,omitempty"`

	// Error contains the error that stopped the pipeline, if any.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewImportReport creates a report for the given source with a fresh ID.
func NewImportReport(source string, hasHeader bool) *ImportReport {
	return &ImportReport{
		ID:           uuid.NewString(),
		Source:       source,
		HasHeader:    hasHeader,
		StartLine:    1,
		DateImported: time.Now(),
	}
}

// RowCount returns the number of data rows read from the source.
func (r *ImportReport) RowCount() int {
	return len(r.Rows)
}

// Failed reports whether the pipeline stopped with an error.
func (r *ImportReport) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}

// ProcessedCount returns the number of people parsed, or 0 before parsing.
func (r *ImportReport) ProcessedCount() int {
	if r.Result == nil {
		return 0
	}
	return r.Result.ProcessedCount()
}

// ErrorCount returns the number of rejected rows, or 0 before parsing.
func (r *ImportReport) ErrorCount() int {
	if r.Result == nil {
		return 0
	}
	return r.Result.ErrorCount()
}
