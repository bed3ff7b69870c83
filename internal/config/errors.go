package config

import "errors"

// Configuration validation errors returned by Validate, ValidateServer and
// ApplyFile.
var (
	// ErrNoInput is returned when no CSV file is given to import.
	ErrNoInput = errors.New("no input specified: provide at least one CSV file")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidFormat is returned for an unknown format in the config file.
	ErrInvalidFormat = errors.New("invalid report format: must be text, json or markdown")

	// ErrNoListenAddress is returned when the server has nowhere to listen.
	ErrNoListenAddress = errors.New("no listen address specified")

	// ErrInvalidMaxUploadSize is returned when the upload limit is not positive.
	ErrInvalidMaxUploadSize = errors.New("invalid max upload size: must be positive")

	// ErrInvalidShutdownTimeout is returned when the shutdown timeout is negative.
	ErrInvalidShutdownTimeout = errors.New("invalid shutdown timeout: must be non-negative")
)
