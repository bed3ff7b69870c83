package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/homeowners/internal/database"
	"github.com/nao1215/homeowners/internal/model"
)

const revisedCSV = "homeowner\nMr John Smith\nMrs Jane Smith\nDr & Mrs Joe Bloggs\n"

// seedTwoImports saves exampleCSV and then revisedCSV under the same path.
func seedTwoImports(t *testing.T) (string, string) {
	t.Helper()

	dbDir := t.TempDir()
	path := writeCSV(t, "homeowners.csv", exampleCSV)
	if _, _, err := execute(t, "import", "-H", "--save", "--db-dir", dbDir, path); err != nil {
		t.Fatalf("failed to import first version: %v", err)
	}
	if err := os.WriteFile(path, []byte(revisedCSV), 0600); err != nil {
		t.Fatalf("failed to rewrite csv: %v", err)
	}
	if _, _, err := execute(t, "import", "-H", "--save", "--db-dir", dbDir, path); err != nil {
		t.Fatalf("failed to import second version: %v", err)
	}
	return dbDir, path
}

// latestImportID returns the ID of the newest saved import of source.
func latestImportID(t *testing.T, dbDir, source string) string {
	t.Helper()

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	imports, err := db.FindImportsBySource(context.Background(), source)
	if err != nil || len(imports) == 0 {
		t.Fatalf("expected imports of %s, got %v (%v)", source, imports, err)
	}
	return imports[0].ID
}

// TestRunCompareCmd tests the compare command execution.
func TestRunCompareCmd(t *testing.T) {
	t.Parallel()

	t.Run("compares the latest two imports as JSON", func(t *testing.T) {
		t.Parallel()

		dbDir, path := seedTwoImports(t)
		stdout, _, err := execute(t, "compare", "--json", "--db-dir", dbDir, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result ComparisonResult
		if err := json.Unmarshal([]byte(stdout), &result); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, stdout)
		}

		wantAdded := []model.Person{{Title: model.TitleMrs, FirstName: "Jane", LastName: "Smith"}}
		if diff := cmp.Diff(wantAdded, result.AddedPeople); diff != "" {
			t.Errorf("added people mismatch (-want +got):\n%s", diff)
		}
		wantRemoved := []model.Person{
			{Title: model.TitleMr, LastName: "Smith"},
			{Title: model.TitleMrs, LastName: "Smith"},
		}
		if diff := cmp.Diff(wantRemoved, result.RemovedPeople); diff != "" {
			t.Errorf("removed people mismatch (-want +got):\n%s", diff)
		}
		if result.UnchangedCount != 3 {
			t.Errorf("expected 3 unchanged people, got %d", result.UnchangedCount)
		}
		if len(result.ResolvedErrors) != 1 || result.ResolvedErrors[0].Input != "Invalid Title" {
			t.Errorf("expected Invalid Title resolved, got %v", result.ResolvedErrors)
		}
		if len(result.NewErrors) != 0 {
			t.Errorf("expected no new errors, got %v", result.NewErrors)
		}
		want := CountChange{Direction: directionImproved, ProcessedDelta: -1, ErrorDelta: -1}
		if result.Change != want {
			t.Errorf("expected %+v, got %+v", want, result.Change)
		}
	})

	t.Run("prints text by default", func(t *testing.T) {
		t.Parallel()

		dbDir, path := seedTwoImports(t)
		stdout, _, err := execute(t, "compare", "--db-dir", dbDir, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"IMPROVED", "Added People (1)", "[+] Mrs Jane Smith", "Resolved Errors (1)", "Unchanged: 3 people"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, stdout)
			}
		}
	})

	t.Run("prints markdown", func(t *testing.T) {
		t.Parallel()

		dbDir, path := seedTwoImports(t)
		stdout, _, err := execute(t, "compare", "--markdown", "--db-dir", dbDir, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"# Import Comparison", "## Removed People (2)", "Rejected rows"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, stdout)
			}
		}
	})

	t.Run("requires two imports", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		path := writeCSV(t, "once.csv", exampleCSV)
		if _, _, err := execute(t, "import", "-H", "--save", "--db-dir", dbDir, path); err != nil {
			t.Fatalf("failed to import: %v", err)
		}
		_, _, err := execute(t, "compare", "--db-dir", dbDir, path)
		if err == nil || !strings.Contains(err.Error(), "at least 2 imports") {
			t.Errorf("expected too few imports error, got %v", err)
		}
	})

	t.Run("rejects an import of another source", func(t *testing.T) {
		t.Parallel()

		dbDir, path := seedTwoImports(t)
		other := writeCSV(t, "other.csv", exampleCSV)
		if _, _, err := execute(t, "import", "-H", "--save", "--db-dir", dbDir, other); err != nil {
			t.Fatalf("failed to import: %v", err)
		}
		otherID := latestImportID(t, dbDir, other)

		_, _, err := execute(t, "compare", "--db-dir", dbDir, "--with-import-id", otherID, path)
		if err == nil || !strings.Contains(err.Error(), "belongs to") {
			t.Errorf("expected source mismatch error, got %v", err)
		}
	})

	t.Run("reports a missing database", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "compare", "--db-dir", t.TempDir(), "homeowners.csv")
		if err == nil || !strings.Contains(err.Error(), "no import history") {
			t.Errorf("expected missing history error, got %v", err)
		}
	})

	t.Run("json and markdown conflict", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "compare", "--json", "--markdown", "--db-dir", t.TempDir(), "homeowners.csv")
		if err == nil {
			t.Error("expected an error")
		}
	})
}

// TestCompareImports tests the multiset diff.
func TestCompareImports(t *testing.T) {
	t.Parallel()

	smith := model.Person{Title: model.TitleMr, LastName: "Smith"}
	jones := model.Person{Title: model.TitleMs, Initial: "A", LastName: "Jones"}

	previous := model.NewImportReport("a.csv", false)
	previous.Result = model.NewBatchResult(
		[]model.Person{smith, smith, jones},
		[]model.RowError{{Row: 4, Input: "Sir Bob", Message: "Invalid title: Sir"}},
	)
	current := model.NewImportReport("a.csv", false)
	current.Result = model.NewBatchResult(
		[]model.Person{smith, jones, jones},
		[]model.RowError{
			{Row: 4, Input: "Sir Bob", Message: "Invalid title: Sir"},
			{Row: 5, Input: "Mr", Message: "Missing required last name"},
		},
	)

	result := compareImports(previous, current)

	if diff := cmp.Diff([]model.Person{jones}, result.AddedPeople); diff != "" {
		t.Errorf("added people mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.Person{smith}, result.RemovedPeople); diff != "" {
		t.Errorf("removed people mismatch (-want +got):\n%s", diff)
	}
	if result.UnchangedCount != 2 {
		t.Errorf("expected 2 unchanged, got %d", result.UnchangedCount)
	}
	if len(result.NewErrors) != 1 || result.NewErrors[0].Row != 5 {
		t.Errorf("expected row 5 as new error, got %v", result.NewErrors)
	}
	if len(result.ResolvedErrors) != 0 {
		t.Errorf("expected no resolved errors, got %v", result.ResolvedErrors)
	}
	if result.Change.Direction != directionWorsened || result.Change.ErrorDelta != 1 || result.Change.ProcessedDelta != 0 {
		t.Errorf("unexpected change %+v", result.Change)
	}
}

// TestFormatDelta tests signed delta formatting.
func TestFormatDelta(t *testing.T) {
	t.Parallel()

	for delta, want := range map[int]string{3: "+3", 0: "0", -2: "-2"} {
		if got := formatDelta(delta); got != want {
			t.Errorf("formatDelta(%d) = %q, expected %q", delta, got, want)
		}
	}
}
