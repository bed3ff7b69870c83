package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestRead tests CSV decoding.
func TestRead(t *testing.T) {
	t.Parallel()

	t.Run("drops the header and starts at line 2", func(t *testing.T) {
		t.Parallel()

		input := "homeowner\nMr John Smith\nMrs Jane Smith\n"
		rows, err := Read(strings.NewReader(input), true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if rows.StartLine != 2 {
			t.Errorf("expected start line 2, got %d", rows.StartLine)
		}
		if diff := cmp.Diff([]string{"homeowner"}, rows.Header); diff != "" {
			t.Errorf("header mismatch (-want +got):\n%s", diff)
		}
		want := [][]string{{"Mr John Smith"}, {"Mrs Jane Smith"}}
		if diff := cmp.Diff(want, rows.Records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("keeps the first row without a header", func(t *testing.T) {
		t.Parallel()

		rows, err := Read(strings.NewReader("Mr John Smith\n"), false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rows.StartLine != 1 {
			t.Errorf("expected start line 1, got %d", rows.StartLine)
		}
		if rows.Len() != 1 {
			t.Errorf("expected 1 row, got %d", rows.Len())
		}
		if rows.Header != nil {
			t.Errorf("expected no header, got %v", rows.Header)
		}
	})

	t.Run("keeps blank lines as empty rows", func(t *testing.T) {
		t.Parallel()

		input := "Mr John Smith\n\n\nMrs Jane Smith\n\n"
		rows, err := Read(strings.NewReader(input), false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := [][]string{{"Mr John Smith"}, {""}, {""}, {"Mrs Jane Smith"}}
		if diff := cmp.Diff(want, rows.Records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("multi-line quoted fields do not shift later rows", func(t *testing.T) {
		t.Parallel()

		input := "\"Mr John\nSmith\"\n\nMrs Jane Smith\n"
		rows, err := Read(strings.NewReader(input), false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := [][]string{{"Mr John\nSmith"}, {""}, {"Mrs Jane Smith"}}
		if diff := cmp.Diff(want, rows.Records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("accepts rows with differing field counts", func(t *testing.T) {
		t.Parallel()

		input := "Mr John Smith,London\nMrs Jane Smith\n"
		rows, err := Read(strings.NewReader(input), false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := [][]string{{"Mr John Smith", "London"}, {"Mrs Jane Smith"}}
		if diff := cmp.Diff(want, rows.Records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("strips a UTF-8 byte order mark", func(t *testing.T) {
		t.Parallel()

		rows, err := Read(strings.NewReader("\ufeffMr John Smith\n"), false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := rows.Records[0][0]; got != "Mr John Smith" {
			t.Errorf("expected BOM to be stripped, got %q", got)
		}
	})

	t.Run("decodes UTF-16 with a byte order mark", func(t *testing.T) {
		t.Parallel()

		// "Mr X\n" in UTF-16LE with BOM.
		raw := []byte{0xFF, 0xFE, 'M', 0, 'r', 0, ' ', 0, 'X', 0, '\n', 0}
		rows, err := Read(strings.NewReader(string(raw)), false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := rows.Records[0][0]; got != "Mr X" {
			t.Errorf("expected %q, got %q", "Mr X", got)
		}
	})

	t.Run("returns ErrEmptyFile for empty input", func(t *testing.T) {
		t.Parallel()

		_, err := Read(strings.NewReader(""), false)
		if !errors.Is(err, ErrEmptyFile) {
			t.Errorf("expected ErrEmptyFile, got %v", err)
		}
	})

	t.Run("returns ErrEmptyFile for a header-only file", func(t *testing.T) {
		t.Parallel()

		_, err := Read(strings.NewReader("homeowner\n"), true)
		if !errors.Is(err, ErrEmptyFile) {
			t.Errorf("expected ErrEmptyFile, got %v", err)
		}
	})
}

// TestReadChecksum tests the source fingerprint.
func TestReadChecksum(t *testing.T) {
	t.Parallel()

	a, err := Read(strings.NewReader("Mr John Smith\n"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Read(strings.NewReader("Mr John Smith\n"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, err := Read(strings.NewReader("Mrs Jane Smith\n"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a.Checksum) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a.Checksum))
	}
	if a.Checksum != b.Checksum {
		t.Error("expected identical inputs to have identical checksums")
	}
	if a.Checksum == c.Checksum {
		t.Error("expected different inputs to have different checksums")
	}
}

// TestReadFile tests reading from disk.
func TestReadFile(t *testing.T) {
	t.Parallel()

	t.Run("reads an existing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "homeowners.csv")
		if err := os.WriteFile(path, []byte("homeowner\nMr John Smith\n"), 0o600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		rows, err := ReadFile(path, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rows.Len() != 1 {
			t.Errorf("expected 1 row, got %d", rows.Len())
		}
	})

	t.Run("returns an error for a missing file", func(t *testing.T) {
		t.Parallel()

		_, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"), false)
		if err == nil {
			t.Error("expected error for missing file")
		}
	})
}
