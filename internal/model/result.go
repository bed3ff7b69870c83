package model

// EmptyInputPlaceholder is recorded as the input of a RowError when the name
// field of the row was blank.
const EmptyInputPlaceholder = "Empty input"

// RowError describes a row that could not be turned into people.
// Row errors are terminal: they are reported, never retried.
type RowError struct {
	// Row is the 1-based line number in the original file, including the
	// header line when one was present.
	Row int `json:"row"`

	// Input is the trimmed name field, or EmptyInputPlaceholder.
	Input string `json:"input"`

	// Message is the human-readable reason the row was rejected.
	Message string `json:"message"`
}

// BatchResult holds the outcome of processing one batch of rows.
// People and Errors are both in row order; within a row, people keep the
// order produced by the parser.
type BatchResult struct {
	// People contains every person parsed from the batch.
	People []Person `json:"people"`

	// Errors contains one entry per rejected row.
	Errors []RowError `json:"errors"`

	// Processed mirrors ProcessedCount for serialization.
	Processed int `json:"processed_count"`

	// Failed mirrors ErrorCount for serialization.
	Failed int `json:"error_count"`
}

// NewBatchResult builds a BatchResult from the collected people and errors.
// Nil slices are normalized to empty slices so JSON output is always an array.
func NewBatchResult(people []Person, errs []RowError) *BatchResult {
	if people == nil {
		people = []Person{}
	}
	if errs == nil {
		errs = []RowError{}
	}
	return &BatchResult{
		People:    people,
		Errors:    errs,
		Processed: len(people),
		Failed:    len(errs),
	}
}

// ProcessedCount returns the number of people parsed.
func (r *BatchResult) ProcessedCount() int {
	return len(r.People)
}

// ErrorCount returns the number of rejected rows.
func (r *BatchResult) ErrorCount() int {
	return len(r.Errors)
}

// HasErrors reports whether any row was rejected.
func (r *BatchResult) HasErrors() bool {
	return len(r.Errors) > 0
}
