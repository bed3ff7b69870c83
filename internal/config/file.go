package config

import "fmt"

// CLI flag names that the configuration file can supply defaults for.
const (
	FlagHeader        = "header"
	FlagConcurrency   = "concurrency"
	FlagJSON          = "json"
	FlagMarkdown      = "markdown"
	FlagSave          = "save"
	FlagListen        = "listen"
	FlagMaxUploadSize = "max-upload-size"
)

// ImportSettings are defaults for the import command.
type ImportSettings struct {
	// HasHeader treats the first line of every input as a header.
	HasHeader *bool `yaml:"has_header,omitempty"`

	// Concurrency is the number of rows parsed at once.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Format is the report format: text, json or markdown.
	Format string `yaml:"format,omitempty"`

	// SaveHistory saves each import to the history database.
	SaveHistory *bool `yaml:"save_history,omitempty"`
}

// ServerSettings are defaults for the serve command.
type ServerSettings struct {
	// Listen is the "host:port" address of the upload server.
	Listen string `yaml:"listen,omitempty"`

	// MaxUploadSize is the largest accepted upload in bytes.
	MaxUploadSize int64 `yaml:"max_upload_size,omitempty"`
}

// File represents the structure of the .homeowners configuration file.
type File struct {
	Import ImportSettings `yaml:"import,omitempty"`
	Server ServerSettings `yaml:"server,omitempty"`
}

// ApplyFile copies settings from f into c. A setting is skipped when its
// flag was set explicitly on the command line, as reported by isSet.
// Zero values in the file are treated as absent.
func (c *Config) ApplyFile(f *File, isSet func(flag string) bool) error {
	if f == nil {
		return nil
	}
	if isSet == nil {
		isSet = func(string) bool { return false }
	}

	if f.Import.HasHeader != nil && !isSet(FlagHeader) {
		c.HasHeader = *f.Import.HasHeader
	}
	if f.Import.Concurrency != 0 && !isSet(FlagConcurrency) {
		c.Concurrency = f.Import.Concurrency
	}
	if f.Import.SaveHistory != nil && !isSet(FlagSave) {
		c.SaveToDB = *f.Import.SaveHistory
	}

	if f.Import.Format != "" && !isSet(FlagJSON) && !isSet(FlagMarkdown) {
		switch f.Import.Format {
		case FormatText:
			c.JSONReport, c.MarkdownReport = false, false
		case FormatJSON:
			c.JSONReport, c.MarkdownReport = true, false
		case FormatMarkdown:
			c.JSONReport, c.MarkdownReport = false, true
		default:
			return fmt.Errorf("%w: %q", ErrInvalidFormat, f.Import.Format)
		}
	}

	if f.Server.Listen != "" && !isSet(FlagListen) {
		c.ListenAddress = f.Server.Listen
	}
	if f.Server.MaxUploadSize != 0 && !isSet(FlagMaxUploadSize) {
		c.MaxUploadSize = f.Server.MaxUploadSize
	}

	return nil
}
