package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/homeowners/internal/model"
	"github.com/olekukonko/tablewriter"
)

// SimpleWriter outputs human-readable text reports: a table of the people
// parsed, a table of rejected rows, and the totals.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints the people and error sections even when they have no
	// rows.
	showEmpty bool

	// verbose adds the import identity and the performed steps.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.ImportReport) (int, error) {
	var buf bytes.Buffer
	res := result(report)

	w.writeHeader(&buf, report)

	if err := w.writePeople(&buf, res); err != nil {
		return 0, err
	}
	if err := w.writeErrors(&buf, res); err != nil {
		return 0, err
	}

	fmt.Fprintf(&buf, "Total Processed: %d\n", res.ProcessedCount())
	fmt.Fprintf(&buf, "Total Errors: %d\n", res.ErrorCount())

	return w.output.Write(buf.Bytes())
}

// writeHeader writes the source line and, when verbose, the import identity.
func (w *SimpleWriter) writeHeader(buf *bytes.Buffer, report *model.ImportReport) {
	fmt.Fprintf(buf, "Source: %s\n", report.Source)

	if w.verbose {
		fmt.Fprintf(buf, "Import ID: %s\n", report.ID)
		fmt.Fprintf(buf, "Imported:  %s\n", report.DateImported.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(buf, "Duration:  %s\n", report.Duration)
		if len(report.PerformedSteps) > 0 {
			fmt.Fprintf(buf, "Steps:     %s\n", strings.Join(report.PerformedSteps, ", "))
		}
	}

	switch {
	case report.Cancelled:
		buf.WriteString("Status: CANCELLED (partial results)\n")
	case report.ErrorMessage != "":
		fmt.Fprintf(buf, "Status: ERROR - %s\n", report.ErrorMessage)
	case report.Error != nil:
		fmt.Fprintf(buf, "Status: ERROR - %s\n", report.Error)
	}
}

// writePeople writes the table of parsed people.
func (w *SimpleWriter) writePeople(buf *bytes.Buffer, res *model.BatchResult) error {
	if res.ProcessedCount() == 0 && !w.showEmpty {
		return nil
	}

	fmt.Fprintf(buf, "\nSuccessfully processed %d records:\n", res.ProcessedCount())

	table := tablewriter.NewWriter(buf)
	table.Header("Title", "First Name", "Initial", "Last Name")
	for _, p := range res.People {
		if err := table.Append([]string{
			p.Title.String(),
			orDash(p.FirstName),
			orDash(p.Initial),
			p.LastName,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// writeErrors writes the table of rejected rows.
func (w *SimpleWriter) writeErrors(buf *bytes.Buffer, res *model.BatchResult) error {
	if !res.HasErrors() && !w.showEmpty {
		return nil
	}

	fmt.Fprintf(buf, "\nEncountered %d errors:\n", res.ErrorCount())

	table := tablewriter.NewWriter(buf)
	table.Header("Row", "Input", "Error")
	for _, e := range res.Errors {
		if err := table.Append([]string{strconv.Itoa(e.Row), e.Input, e.Message}); err != nil {
			return err
		}
	}
	return table.Render()
}
