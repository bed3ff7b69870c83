package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/homeowners/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "homeowners.db"

// ErrNotFound is returned by Open when CreateIfNotExists is false and the
// database file does not exist.
var ErrNotFound = errors.New("database not found")

// timestampLayout is how import timestamps are written.
const timestampLayout = "2006-01-02 15:04:05"

// ImportDB stores import history: one row per import plus the people and
// row errors it produced.
type ImportDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ImportDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an ImportDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, ErrNotFound
// is returned and nothing is created.
func Open(dbDir string, opts Options) (*ImportDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw&_pragma=foreign_keys(1)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	idb := &ImportDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := idb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return idb, nil
}

// Path returns the database file path.
func (idb *ImportDB) Path() string {
	return idb.dbPath
}

// Close closes the database connection.
func (idb *ImportDB) Close() error {
	return idb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (idb *ImportDB) createTables() error {
	schema := `
	-- One row per import run; report_json keeps the full report
	CREATE TABLE IF NOT EXISTS imports (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		checksum TEXT,
		has_header INTEGER NOT NULL DEFAULT 0,
		start_line INTEGER NOT NULL DEFAULT 1,
		row_count INTEGER NOT NULL DEFAULT 0,
		processed_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_imports_checksum ON imports(checksum);
	CREATE INDEX IF NOT EXISTS idx_imports_timestamp ON imports(timestamp);
	CREATE INDEX IF NOT EXISTS idx_imports_source ON imports(source);

	-- People parsed by an import, in output order
	CREATE TABLE IF NOT EXISTS people (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		import_id TEXT NOT NULL REFERENCES imports(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		first_name TEXT,
		initial TEXT,
		last_name TEXT NOT NULL,
		last_name_key TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_people_import ON people(import_id);
	CREATE INDEX IF NOT EXISTS idx_people_last_name_key ON people(last_name_key);

	-- Rows rejected by an import
	CREATE TABLE IF NOT EXISTS row_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		import_id TEXT NOT NULL REFERENCES imports(id) ON DELETE CASCADE,
		row INTEGER NOT NULL,
		input TEXT NOT NULL,
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_row_errors_import ON row_errors(import_id);
	`

	_, err := idb.db.ExecContext(context.Background(), schema)
	return err
}

// ImportSummary is an imports row without its people and errors.
type ImportSummary struct {
	ID             string
	Source         string
	Checksum       string
	Timestamp      time.Time
	RowCount       int
	ProcessedCount int
	ErrorCount     int
	Duration       time.Duration
	ErrorMessage   string
}

// PersonRecord is a stored person together with the import it came from.
type PersonRecord struct {
	ImportID  string
	Source    string
	Timestamp time.Time
	Person    model.Person
}

// SaveImport stores a finished import in a single transaction. Saving the
// same report ID twice fails.
func (idb *ImportDB) SaveImport(ctx context.Context, report *model.ImportReport) (err error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := idb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO imports (id, source, checksum, has_header, start_line, row_count,
		processed_count, error_count, duration_ms, error_message, timestamp, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID,
		report.Source,
		nullString(report.Checksum),
		report.HasHeader,
		report.StartLine,
		report.RowCount(),
		report.ProcessedCount(),
		report.ErrorCount(),
		report.Duration.Milliseconds(),
		nullString(report.ErrorMessage),
		report.DateImported.UTC().Format(timestampLayout),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save import: %w", err)
	}

	if report.Result != nil {
		for i, p := range report.Result.People {
			_, err = tx.ExecContext(ctx, `
			INSERT INTO people (import_id, position, title, first_name, initial, last_name, last_name_key)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			`,
				report.ID,
				i,
				string(p.Title),
				nullString(p.FirstName),
				nullString(p.Initial),
				p.LastName,
				foldName(p.LastName),
			)
			if err != nil {
				return fmt.Errorf("failed to save person: %w", err)
			}
		}

		for _, e := range report.Result.Errors {
			_, err = tx.ExecContext(ctx, `
			INSERT INTO row_errors (import_id, row, input, message)
			VALUES (?, ?, ?, ?)
			`,
				report.ID,
				e.Row,
				e.Input,
				e.Message,
			)
			if err != nil {
				return fmt.Errorf("failed to save row error: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

const summaryColumns = `id, source, checksum, timestamp, row_count, processed_count, error_count, duration_ms, error_message`

// ListImports returns the most recent imports first. A limit of zero or less
// returns every import.
func (idb *ImportDB) ListImports(ctx context.Context, limit int) ([]ImportSummary, error) {
	query := `SELECT ` + summaryColumns + ` FROM imports ORDER BY timestamp DESC, rowid DESC`
	args := make([]interface{}, 0)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := idb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// FindImportsByChecksum returns earlier imports of byte-identical input.
func (idb *ImportDB) FindImportsByChecksum(ctx context.Context, checksum string) ([]ImportSummary, error) {
	query := `SELECT ` + summaryColumns + ` FROM imports WHERE checksum = ? ORDER BY timestamp DESC, rowid DESC`

	rows, err := idb.db.QueryContext(ctx, query, checksum)
	if err != nil {
		return nil, fmt.Errorf("failed to find imports: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// FindImportsBySource returns the imports of the given source, newest first.
func (idb *ImportDB) FindImportsBySource(ctx context.Context, source string) ([]ImportSummary, error) {
	query := `SELECT ` + summaryColumns + ` FROM imports WHERE source = ? ORDER BY timestamp DESC, rowid DESC`

	rows, err := idb.db.QueryContext(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to find imports: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// GetImport returns the stored report with the given ID, or nil when there
// is none. Rows are not stored, so the returned report has none.
func (idb *ImportDB) GetImport(ctx context.Context, id string) (*model.ImportReport, error) {
	var reportJSON string
	err := idb.db.QueryRowContext(ctx, `SELECT report_json FROM imports WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import: %w", err)
	}

	var report model.ImportReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// SearchPeople returns every stored person with the given last name, newest
// import first. Names are compared Unicode case-folded, so "émile" finds
// "Émile".
func (idb *ImportDB) SearchPeople(ctx context.Context, lastName string) ([]PersonRecord, error) {
	query := `
	SELECT p.import_id, i.source, i.timestamp, p.title, p.first_name, p.initial, p.last_name
	FROM people p
	JOIN imports i ON i.id = p.import_id
	WHERE p.last_name_key = ?
	ORDER BY i.timestamp DESC, i.rowid DESC, p.position
	`

	rows, err := idb.db.QueryContext(ctx, query, foldName(lastName))
	if err != nil {
		return nil, fmt.Errorf("failed to search people: %w", err)
	}
	defer rows.Close()

	var results []PersonRecord
	for rows.Next() {
		var rec PersonRecord
		var timestamp, title string
		var firstName, initial sql.NullString

		if err := rows.Scan(
			&rec.ImportID,
			&rec.Source,
			&timestamp,
			&title,
			&firstName,
			&initial,
			&rec.Person.LastName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}

		rec.Timestamp = parseTimestamp(timestamp)
		rec.Person.Title = model.Title(title)
		rec.Person.FirstName = firstName.String
		rec.Person.Initial = initial.String
		results = append(results, rec)
	}

	return results, rows.Err()
}

// foldName is the search key of a last name. SQLite's NOCASE only folds
// ASCII, so folding happens here.
func foldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

func scanSummaries(rows *sql.Rows) ([]ImportSummary, error) {
	var results []ImportSummary
	for rows.Next() {
		var s ImportSummary
		var timestamp string
		var checksum, errorMessage sql.NullString
		var durationMS int64

		if err := rows.Scan(
			&s.ID,
			&s.Source,
			&checksum,
			&timestamp,
			&s.RowCount,
			&s.ProcessedCount,
			&s.ErrorCount,
			&durationMS,
			&errorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}

		s.Checksum = checksum.String
		s.ErrorMessage = errorMessage.String
		s.Timestamp = parseTimestamp(timestamp)
		s.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, s)
	}

	return results, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time when none
// match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
