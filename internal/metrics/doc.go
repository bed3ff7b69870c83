// Package metrics exposes import counters and timings as Prometheus
// collectors. The serve command publishes them on /metrics; the CLI import
// path records into a throwaway registry.
package metrics
