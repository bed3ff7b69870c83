// Package server exposes the homeowner importer over HTTP.
//
// Routes:
//
//	GET  /         upload form
//	POST /upload   multipart "file" (.csv or .txt) plus "csvHasHeader"
//	GET  /healthz  liveness probe
//	GET  /metrics  Prometheus metrics
//
// An upload answers 200 when every row was parsed and 207 when some rows
// were rejected; both carry the report.Response document. A missing or
// mistyped file answers 422 and a file that cannot be read answers 500.
package server
