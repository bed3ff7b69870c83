// Package database stores import history in SQLite.
//
// Every import run through the pipeline with history enabled is kept as an
// imports row holding the full JSON report, with the parsed people and the
// rejected rows in their own tables so they can be searched. The database
// is a single file in the user's data directory, opened with WAL and a
// single connection.
package database
