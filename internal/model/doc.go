// Package model defines the core data structures used throughout homeowners.
//
// This package contains the following main types:
//   - Person: One structured person parsed from a homeowner name string
//   - RowError: A failure to parse a single input row
//   - BatchResult: People and row errors collected from one batch of rows
//   - ImportReport: One import run of a CSV source through the pipeline
//
// Models live in their own package so that the parser, pipeline, report,
// database and server packages can share them without import cycles.
//
// All types serialize to JSON with the field names used by the HTTP upload
// response and the import history database.
package model
