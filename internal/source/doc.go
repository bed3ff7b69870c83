// Package source reads homeowner rows from CSV files and uploads.
//
// The name is expected in the first field of each row; other fields are
// carried along untouched. Line numbers reported elsewhere are derived from
// Rows.StartLine, so blank lines inside the file are preserved as empty rows
// instead of being skipped.
package source
