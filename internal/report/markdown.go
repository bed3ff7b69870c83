package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/homeowners/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ImportReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	res := result(report)

	w.writeHeader(md, report, res)
	w.writeSummary(md, report, res)
	w.writePeople(md, res)
	w.writeErrors(md, res)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report title and the import information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ImportReport, res *model.BatchResult) {
	md.H1("Homeowner Import Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", "`" + report.Source + "`"},
			{"Import ID", "`" + report.ID + "`"},
			{"Imported", report.DateImported.Format("2006-01-02 15:04:05 MST")},
			{"Rows", strconv.Itoa(report.RowCount())},
			{"Status", w.getStatusText(report, res)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.ImportReport, res *model.BatchResult) string {
	switch {
	case report.Cancelled:
		return "⚠️ Cancelled (partial results)"
	case report.ErrorMessage != "":
		return "❌ Error - " + report.ErrorMessage
	case report.Error != nil:
		return "❌ Error - " + report.Error.Error()
	case res.HasErrors():
		return "🟡 " + MessagePartial
	default:
		return "✅ " + MessageSuccess
	}
}

// writeSummary writes the totals table, the outcome chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ImportReport, res *model.BatchResult) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"People parsed", strconv.Itoa(res.ProcessedCount())},
			{"Rows rejected", strconv.Itoa(res.ErrorCount())},
		},
	})
	md.PlainText("")

	if res.ProcessedCount() > 0 || res.HasErrors() {
		w.writePieChart(md, res)
	}

	w.writeAlert(md, report, res)
}

// writePieChart writes a mermaid pie chart of parsed people against
// rejected rows.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, res *model.BatchResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Import Outcome"),
		piechart.WithShowData(true),
	)

	if res.ProcessedCount() > 0 {
		chart.LabelAndIntValue("People parsed", uint64(res.ProcessedCount()))
	}
	if res.HasErrors() {
		chart.LabelAndIntValue("Rows rejected", uint64(res.ErrorCount()))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the import outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ImportReport, res *model.BatchResult) {
	switch {
	case report.Failed():
		md.Cautionf("The import failed after %d step(s); results are incomplete.", len(report.PerformedSteps))
	case res.HasErrors() && res.ProcessedCount() == 0:
		md.Warningf("Every row was rejected. %d row(s) need fixing.", res.ErrorCount())
	case res.HasErrors():
		md.Importantf("%d row(s) were rejected and need review.", res.ErrorCount())
	case len(report.PreviousImports) > 0:
		md.Note(fmt.Sprintf("This file was imported before (%d time(s)).", len(report.PreviousImports)))
	default:
		md.Tip("Every row was processed.")
	}
	md.PlainText("")
}

// writePeople writes the table of parsed people.
func (w *MarkdownWriter) writePeople(md *markdown.Markdown, res *model.BatchResult) {
	md.H2("People")
	md.PlainText("")

	if res.ProcessedCount() == 0 {
		md.PlainText("No people parsed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(res.People))
	for i, p := range res.People {
		rows[i] = []string{p.Title.String(), orDash(p.FirstName), orDash(p.Initial), p.LastName}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Title", "First Name", "Initial", "Last Name"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeErrors writes the table of rejected rows.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, res *model.BatchResult) {
	if !res.HasErrors() {
		return
	}

	md.H2("Rejected Rows")
	md.PlainText("")

	rows := make([][]string, len(res.Errors))
	for i, e := range res.Errors {
		rows[i] = []string{strconv.Itoa(e.Row), truncateString(e.Input, 50), e.Message}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Row", "Input", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by homeowners*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
