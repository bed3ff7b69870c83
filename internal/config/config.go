package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "homeowners"

	// DefaultConcurrency is the number of rows parsed at once. Parsing is
	// CPU-bound and cheap per row, so a small pool is enough.
	DefaultConcurrency = 4

	// DefaultListenAddress is where the upload server listens. Loopback
	// only, since uploads contain personal data.
	DefaultListenAddress = "127.0.0.1:8080"

	// DefaultMaxUploadSize caps the size of an uploaded CSV file.
	DefaultMaxUploadSize = 10 * 1024 * 1024 // 10MB

	// DefaultShutdownTimeout bounds graceful shutdown of the upload server.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultHistoryLimit is how many imports the history command lists.
	DefaultHistoryLimit = 20
)

// Report formats accepted in the configuration file.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Config holds all configuration options for the importer and the upload
// server. It is populated from CLI flags, optionally overlaid with the
// configuration file, and passed down explicitly.
type Config struct {
	// Inputs are the CSV files to import.
	Inputs []string

	// HasHeader treats the first line of every input as a header.
	HasHeader bool

	// Concurrency is the number of rows parsed at once.
	Concurrency int

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit configuration file path, if any.
	ConfigFilePath string

	// JSONReport selects the JSON report. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown report. Mutually exclusive with
	// JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// DBDir is the directory holding the history database.
	// Defaults to XDGDataDir().
	DBDir string

	// SaveToDB saves each import to the history database.
	SaveToDB bool

	// MetricsFile, when set, receives the import metrics in the Prometheus
	// text format after the run, for node_exporter's textfile collector.
	MetricsFile string

	// ListenAddress is the upload server address in "host:port" form.
	ListenAddress string

	// MaxUploadSize is the largest accepted upload in bytes.
	MaxUploadSize int64

	// ShutdownTimeout bounds graceful shutdown of the upload server.
	ShutdownTimeout time.Duration
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Concurrency:     DefaultConcurrency,
		DBDir:           XDGDataDir(),
		ListenAddress:   DefaultListenAddress,
		MaxUploadSize:   DefaultMaxUploadSize,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// XDGDataDir returns the XDG data directory for homeowners.
// On Linux: ~/.local/share/homeowners
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for homeowners.
// On Linux: ~/.config/homeowners
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Format returns the selected report format.
func (c *Config) Format() string {
	switch {
	case c.JSONReport:
		return FormatJSON
	case c.MarkdownReport:
		return FormatMarkdown
	default:
		return FormatText
	}
}

// Validate checks the configuration of an import and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// ValidateServer checks the configuration of the upload server and returns
// the first problem found.
func (c *Config) ValidateServer() error {
	if c.ListenAddress == "" {
		return ErrNoListenAddress
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxUploadSize <= 0 {
		return ErrInvalidMaxUploadSize
	}
	if c.ShutdownTimeout < 0 {
		return ErrInvalidShutdownTimeout
	}
	return nil
}
