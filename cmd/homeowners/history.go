package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/homeowners/internal/config"
	"github.com/nao1215/homeowners/internal/database"
	"github.com/nao1215/homeowners/internal/report"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// historyTimeLayout is how import timestamps are printed.
const historyTimeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show imports saved with --save",
		Long: `History lists the imports kept in the history database, newest first.

Examples:
  # List the latest imports
  homeowners history

  # Show one import in full
  homeowners history --show 3f0c3c9e-1d5e-4d9a-9a53-0c3c9e1d5e4d

  # Find every imported person with a last name
  homeowners history --search smith`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("show", "", "Show the import with this ID")
	cmd.Flags().String("search", "", "Search imported people by last name (case-insensitive)")
	cmd.Flags().IntP("limit", "l", config.DefaultHistoryLimit, "Maximum number of imports to list")
	cmd.Flags().BoolP(config.FlagJSON, "j", false, "Output --show as JSON")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	show, err := cmd.Flags().GetString("show")
	if err != nil {
		return err
	}
	search, err := cmd.Flags().GetString("search")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool(config.FlagJSON)
	if err != nil {
		return err
	}

	if show != "" && search != "" {
		return errors.New("--show and --search cannot be used together")
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false

	db, err := database.Open(dbDir, opts)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "No import history found in %s\n", dbDir)
			return nil
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	switch {
	case show != "":
		rep, err := db.GetImport(cmd.Context(), show)
		if err != nil {
			return err
		}
		if rep == nil {
			return fmt.Errorf("import not found: %s", show)
		}
		if asJSON {
			_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).WriteImport(rep)
			return err
		}
		_, err = report.NewSimpleWriter(out, report.WithVerbose(true)).Write(rep)
		return err

	case search != "":
		records, err := db.SearchPeople(cmd.Context(), search)
		if err != nil {
			return err
		}
		return writePeopleTable(out, records)

	default:
		summaries, err := db.ListImports(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return writeImportsTable(out, summaries)
	}
}

// writeImportsTable prints import summaries.
func writeImportsTable(out io.Writer, summaries []database.ImportSummary) error {
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No imports saved yet")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header("ID", "Imported", "Source", "Rows", "People", "Errors")
	for _, s := range summaries {
		if err := table.Append([]string{
			s.ID,
			s.Timestamp.Local().Format(historyTimeLayout),
			s.Source,
			strconv.Itoa(s.RowCount),
			strconv.Itoa(s.ProcessedCount),
			strconv.Itoa(s.ErrorCount),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// writePeopleTable prints people found by a search.
func writePeopleTable(out io.Writer, records []database.PersonRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "No matching people found")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header("Title", "First Name", "Initial", "Last Name", "Source", "Imported", "Import ID")
	for _, r := range records {
		if err := table.Append([]string{
			r.Person.Title.String(),
			dash(r.Person.FirstName),
			dash(r.Person.Initial),
			r.Person.LastName,
			r.Source,
			r.Timestamp.Local().Format(historyTimeLayout),
			r.ImportID,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
