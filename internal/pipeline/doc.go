// Package pipeline runs homeowner imports.
//
// An import is a sequence of steps over a shared model.ImportReport: read
// the CSV source, parse every row, then optionally save the result to the
// history database and record metrics. The CLI and the HTTP server build the
// same pipeline with DefaultPipeline and differ only in the source opener.
//
// BatchProcessor is the row loop at the center of the parse step. It turns
// each row's name field into people and records any failure as a row error
// instead of aborting the batch. Rows can be parsed concurrently with
// errgroup while still producing output in row order.
package pipeline
