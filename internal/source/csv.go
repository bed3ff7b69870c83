package source

import (
	"bytes"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/sha3"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmptyFile is returned when the source holds no data rows. A file with
// only a header row is empty too.
var ErrEmptyFile = errors.New("file contains no rows")

// Rows is a decoded CSV source.
type Rows struct {
	// Header is the dropped header record, or nil.
	Header []string

	// Records are the data rows in file order. Blank lines between records
	// are kept as rows with a single empty field so that line numbers stay
	// aligned with the file.
	Records [][]string

	// HasHeader records whether the first record was treated as a header.
	HasHeader bool

	// StartLine is the file line number of Records[0].
	StartLine int

	// Checksum is the hex SHA3-256 digest of the raw input bytes.
	Checksum string
}

// Len returns the number of data rows.
func (r *Rows) Len() int {
	return len(r.Records)
}

// Read decodes CSV from r. A UTF-8 byte order mark is stripped and UTF-16
// input with a byte order mark is transcoded to UTF-8. Records may have any
// number of fields and bare quotes are tolerated.
//
// When hasHeader is true the first record is dropped and StartLine is 2;
// otherwise StartLine is 1.
func Read(r io.Reader, hasHeader bool) (*Rows, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	sum := sha3.Sum256(raw)
	rows := &Rows{
		HasHeader: hasHeader,
		StartLine: 1,
		Checksum:  hex.EncodeToString(sum[:]),
	}

	decoded := transform.NewReader(
		bytes.NewReader(raw),
		unicode.BOMOverride(unicode.UTF8.NewDecoder()),
	)

	records, err := decode(decoded)
	if err != nil {
		return nil, err
	}

	if hasHeader && len(records) > 0 {
		rows.Header = records[0]
		records = records[1:]
		rows.StartLine = 2
	}

	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	rows.Records = records
	return rows, nil
}

// ReadFile opens path and decodes it with Read.
func ReadFile(path string, hasHeader bool) (*Rows, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, hasHeader)
}

// decode reads every record, inserting an empty row for each blank line that
// encoding/csv skips between records. Trailing blank lines are dropped.
func decode(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	lastLine := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode CSV: %w", err)
		}

		line, _ := reader.FieldPos(0)
		for blank := lastLine + 1; blank < line; blank++ {
			records = append(records, []string{""})
		}

		last := len(record) - 1
		endLine, _ := reader.FieldPos(last)
		lastLine = endLine + strings.Count(record[last], "\n")

		records = append(records, record)
	}

	return records, nil
}
