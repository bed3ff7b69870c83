package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/homeowners/internal/config"
	"github.com/nao1215/homeowners/internal/database"
	"github.com/nao1215/homeowners/internal/model"
	md "github.com/nao1215/markdown"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// Directions of the change between two imports.
const (
	directionImproved  = "improved"
	directionWorsened  = "worsened"
	directionUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <source>",
		Short: "Compare the two latest imports of a CSV file",
		Long: `Compare shows what changed between two saved imports of the same source:
people that were added or removed, and rows that started or stopped failing.

Both imports must have been saved with 'homeowners import --save'.

Examples:
  # Compare the latest two imports of a file
  homeowners compare homeowners.csv

  # Compare the latest import with a specific earlier one
  homeowners compare --with-import-id 3f0c3c9e-1d5e-4d9a-9a53-0c3c9e1d5e4d homeowners.csv

  # Output the comparison as JSON
  homeowners compare --json homeowners.csv`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().StringP("with-import-id", "i", "", "Compare the latest import with this earlier import")
	cmd.Flags().BoolP(config.FlagJSON, "j", false, "Output the comparison as JSON")
	cmd.Flags().BoolP(config.FlagMarkdown, "m", false, "Output the comparison as Markdown")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	withID, err := cmd.Flags().GetString("with-import-id")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool(config.FlagJSON)
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool(config.FlagMarkdown)
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	// Validate before opening the database.
	if asJSON && asMarkdown {
		return config.ErrConflictingReportFormats
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false

	db, err := database.Open(dbDir, opts)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no import history found in %s", dbDir)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	previous, current, err := selectImports(cmd.Context(), db, args[0], withID)
	if err != nil {
		return err
	}

	result := compareImports(previous, current)

	out := cmd.OutOrStdout()
	switch {
	case asJSON:
		return outputComparisonJSON(out, result)
	case asMarkdown:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// selectImports loads the latest import of source and the one it is compared
// with: the import before it, or withID when given.
func selectImports(ctx context.Context, db *database.ImportDB, source, withID string) (*model.ImportReport, *model.ImportReport, error) {
	summaries, err := db.FindImportsBySource(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	if len(summaries) == 0 {
		return nil, nil, fmt.Errorf("no saved imports found for %s", source)
	}
	if len(summaries) < 2 && withID == "" {
		return nil, nil, fmt.Errorf("at least 2 imports are required for comparison (found %d)", len(summaries))
	}

	previousID := withID
	if previousID == "" {
		previousID = summaries[1].ID
	}
	if previousID == summaries[0].ID {
		return nil, nil, fmt.Errorf("import %s is the latest import of %s", previousID, source)
	}

	current, err := db.GetImport(ctx, summaries[0].ID)
	if err != nil {
		return nil, nil, err
	}
	previous, err := db.GetImport(ctx, previousID)
	if err != nil {
		return nil, nil, err
	}
	if previous == nil {
		return nil, nil, fmt.Errorf("import not found: %s", previousID)
	}
	if previous.Source != source {
		return nil, nil, fmt.Errorf("import %s belongs to %s, not %s", previousID, previous.Source, source)
	}

	return previous, current, nil
}

// ComparisonResult holds the differences between two imports of one source.
type ComparisonResult struct {
	// Source is the compared file.
	Source string `json:"source"`

	// PreviousImport describes the older import.
	PreviousImport ImportMetadata `json:"previous_import"`

	// CurrentImport describes the newer import.
	CurrentImport ImportMetadata `json:"current_import"`

	// AddedPeople are people only the current import produced.
	AddedPeople []model.Person `json:"added_people"`

	// RemovedPeople are people only the previous import produced.
	RemovedPeople []model.Person `json:"removed_people"`

	// NewErrors are rejected inputs that the previous import accepted or
	// did not contain.
	NewErrors []model.RowError `json:"new_errors"`

	// ResolvedErrors are rejected inputs of the previous import that the
	// current import no longer rejects.
	ResolvedErrors []model.RowError `json:"resolved_errors"`

	// UnchangedCount is the number of people both imports produced.
	UnchangedCount int `json:"unchanged_count"`

	// Change summarizes the count deltas.
	Change CountChange `json:"change"`
}

// ImportMetadata describes one side of a comparison.
type ImportMetadata struct {
	ID             string    `json:"id"`
	DateImported   time.Time `json:"date_imported"`
	Checksum       string    `json:"checksum,omitempty"`
	ProcessedCount int       `json:"processed_count"`
	ErrorCount     int       `json:"error_count"`
}

// CountChange describes how the counts moved between imports.
type CountChange struct {
	// Direction is "improved" when fewer rows were rejected, "worsened"
	// when more were, and "unchanged" otherwise.
	Direction string `json:"direction"`

	ProcessedDelta int `json:"processed_delta"`
	ErrorDelta     int `json:"error_delta"`
}

// compareImports diffs two imports. Both sides are treated as multisets, so
// a person listed twice in one file and once in the other counts as one
// added or removed person. Output keeps the order of the input lists.
func compareImports(previous, current *model.ImportReport) *ComparisonResult {
	prevResult := resultOf(previous)
	currResult := resultOf(current)

	result := &ComparisonResult{
		Source:         current.Source,
		PreviousImport: importMetadata(previous, prevResult),
		CurrentImport:  importMetadata(current, currResult),
		AddedPeople:    []model.Person{},
		RemovedPeople:  []model.Person{},
		NewErrors:      []model.RowError{},
		ResolvedErrors: []model.RowError{},
	}

	previousPeople := make(map[string]int, len(prevResult.People))
	for _, p := range prevResult.People {
		previousPeople[personKey(p)]++
	}
	currentPeople := make(map[string]int, len(currResult.People))
	for _, p := range currResult.People {
		key := personKey(p)
		currentPeople[key]++
		if previousPeople[key] > 0 {
			previousPeople[key]--
			result.UnchangedCount++
			continue
		}
		result.AddedPeople = append(result.AddedPeople, p)
	}
	for _, p := range prevResult.People {
		key := personKey(p)
		if currentPeople[key] > 0 {
			currentPeople[key]--
			continue
		}
		result.RemovedPeople = append(result.RemovedPeople, p)
	}

	previousErrors := make(map[string]int, len(prevResult.Errors))
	for _, e := range prevResult.Errors {
		previousErrors[e.Input]++
	}
	currentErrors := make(map[string]int, len(currResult.Errors))
	for _, e := range currResult.Errors {
		currentErrors[e.Input]++
		if previousErrors[e.Input] > 0 {
			previousErrors[e.Input]--
			continue
		}
		result.NewErrors = append(result.NewErrors, e)
	}
	for _, e := range prevResult.Errors {
		if currentErrors[e.Input] > 0 {
			currentErrors[e.Input]--
			continue
		}
		result.ResolvedErrors = append(result.ResolvedErrors, e)
	}

	result.Change = calculateChange(result.PreviousImport, result.CurrentImport)
	return result
}

func resultOf(r *model.ImportReport) *model.BatchResult {
	if r.Result == nil {
		return model.NewBatchResult(nil, nil)
	}
	return r.Result
}

func importMetadata(r *model.ImportReport, res *model.BatchResult) ImportMetadata {
	return ImportMetadata{
		ID:             r.ID,
		DateImported:   r.DateImported,
		Checksum:       r.Checksum,
		ProcessedCount: res.ProcessedCount(),
		ErrorCount:     res.ErrorCount(),
	}
}

// personKey identifies a person for comparison purposes.
func personKey(p model.Person) string {
	return strings.Join([]string{p.Title.String(), p.FirstName, p.Initial, p.LastName}, "|")
}

// calculateChange computes the deltas between two imports. Only the number
// of rejected rows decides the direction.
func calculateChange(previous, current ImportMetadata) CountChange {
	change := CountChange{
		ProcessedDelta: current.ProcessedCount - previous.ProcessedCount,
		ErrorDelta:     current.ErrorCount - previous.ErrorCount,
	}

	switch {
	case change.ErrorDelta < 0:
		change.Direction = directionImproved
	case change.ErrorDelta > 0:
		change.Direction = directionWorsened
	default:
		change.Direction = directionUnchanged
	}
	return change
}

// outputComparisonJSON writes the comparison as indented JSON.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown writes the comparison as a Markdown document.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	doc := md.NewMarkdown(out).
		H1(fmt.Sprintf("Import Comparison: %s", result.Source)).
		H2("Summary").
		PlainTextf("**Status:** %s", formatDirection(result.Change.Direction)).
		Table(md.TableSet{
			Header: []string{"Metric", "Previous", "Current", "Change"},
			Rows: [][]string{
				{"Import ID", result.PreviousImport.ID, result.CurrentImport.ID, "-"},
				{
					"Date",
					result.PreviousImport.DateImported.Format("2006-01-02 15:04"),
					result.CurrentImport.DateImported.Format("2006-01-02 15:04"),
					"-",
				},
				{
					"People",
					strconv.Itoa(result.PreviousImport.ProcessedCount),
					strconv.Itoa(result.CurrentImport.ProcessedCount),
					formatDelta(result.Change.ProcessedDelta),
				},
				{
					"Rejected rows",
					strconv.Itoa(result.PreviousImport.ErrorCount),
					strconv.Itoa(result.CurrentImport.ErrorCount),
					formatDelta(result.Change.ErrorDelta),
				},
			},
		})

	if len(result.AddedPeople) > 0 {
		doc.H2(fmt.Sprintf("Added People (%d)", len(result.AddedPeople))).
			Table(md.TableSet{Header: personHeader, Rows: personRows(result.AddedPeople)})
	}
	if len(result.RemovedPeople) > 0 {
		doc.H2(fmt.Sprintf("Removed People (%d)", len(result.RemovedPeople))).
			Table(md.TableSet{Header: personHeader, Rows: personRows(result.RemovedPeople)})
	}
	if len(result.NewErrors) > 0 {
		doc.H2(fmt.Sprintf("New Errors (%d)", len(result.NewErrors))).
			Table(md.TableSet{Header: errorHeader, Rows: errorRows(result.NewErrors)})
	}
	if len(result.ResolvedErrors) > 0 {
		doc.H2(fmt.Sprintf("Resolved Errors (%d)", len(result.ResolvedErrors))).
			Table(md.TableSet{Header: errorHeader, Rows: errorRows(result.ResolvedErrors)})
	}
	if result.UnchangedCount > 0 {
		doc.HorizontalRule().PlainTextf("*%d people unchanged*", result.UnchangedCount)
	}

	return doc.Build()
}

// outputComparisonText writes the comparison for a terminal.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Import Comparison: %s\n", result.Source)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nStatus: %s\n", formatDirection(result.Change.Direction))
	fmt.Fprintf(out, "\nPrevious import: %s (%s)\n",
		result.PreviousImport.DateImported.Local().Format(historyTimeLayout), result.PreviousImport.ID)
	fmt.Fprintf(out, "Current import:  %s (%s)\n\n",
		result.CurrentImport.DateImported.Local().Format(historyTimeLayout), result.CurrentImport.ID)

	table := tablewriter.NewWriter(out)
	table.Header("Metric", "Previous", "Current", "Change")
	rows := [][]string{
		{
			"People",
			strconv.Itoa(result.PreviousImport.ProcessedCount),
			strconv.Itoa(result.CurrentImport.ProcessedCount),
			formatDelta(result.Change.ProcessedDelta),
		},
		{
			"Rejected rows",
			strconv.Itoa(result.PreviousImport.ErrorCount),
			strconv.Itoa(result.CurrentImport.ErrorCount),
			formatDelta(result.Change.ErrorDelta),
		},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(result.AddedPeople) > 0 {
		fmt.Fprintf(out, "\nAdded People (%d):\n", len(result.AddedPeople))
		for _, p := range result.AddedPeople {
			fmt.Fprintf(out, "  [+] %s\n", formatPerson(p))
		}
	}
	if len(result.RemovedPeople) > 0 {
		fmt.Fprintf(out, "\nRemoved People (%d):\n", len(result.RemovedPeople))
		for _, p := range result.RemovedPeople {
			fmt.Fprintf(out, "  [-] %s\n", formatPerson(p))
		}
	}
	if len(result.NewErrors) > 0 {
		fmt.Fprintf(out, "\nNew Errors (%d):\n", len(result.NewErrors))
		for _, e := range result.NewErrors {
			fmt.Fprintf(out, "  [+] row %d: %s (%s)\n", e.Row, e.Input, e.Message)
		}
	}
	if len(result.ResolvedErrors) > 0 {
		fmt.Fprintf(out, "\nResolved Errors (%d):\n", len(result.ResolvedErrors))
		for _, e := range result.ResolvedErrors {
			fmt.Fprintf(out, "  [-] row %d: %s\n", e.Row, e.Input)
		}
	}
	if result.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d people\n", result.UnchangedCount)
	}

	return nil
}

var (
	personHeader = []string{"Title", "First Name", "Initial", "Last Name"}
	errorHeader  = []string{"Row", "Input", "Error"}
)

func personRows(people []model.Person) [][]string {
	rows := make([][]string, 0, len(people))
	for _, p := range people {
		rows = append(rows, []string{p.Title.String(), dash(p.FirstName), dash(p.Initial), p.LastName})
	}
	return rows
}

func errorRows(errs []model.RowError) [][]string {
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, []string{strconv.Itoa(e.Row), e.Input, e.Message})
	}
	return rows
}

// formatPerson joins the present fields of a person.
func formatPerson(p model.Person) string {
	parts := []string{p.Title.String()}
	if p.HasFirstName() {
		parts = append(parts, p.FirstName)
	}
	if p.HasInitial() {
		parts = append(parts, p.Initial)
	}
	parts = append(parts, p.LastName)
	return strings.Join(parts, " ")
}

// formatDirection formats the change direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (fewer rejected rows)"
	case directionWorsened:
		return "WORSENED (more rejected rows)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
