package metrics

import (
	"fmt"
	"net/http"

	"github.com/nao1215/homeowners/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "homeowners"
	subsystem = "import"
)

// Import channels.
const (
	ChannelCLI  = "cli"
	ChannelHTTP = "http"
)

// Import statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Row outcomes.
const (
	OutcomeParsed = "parsed"
	OutcomeFailed = "failed"
)

// Recorder holds the import collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	// importsTotal counts imports by channel and status.
	importsTotal *prometheus.CounterVec

	// rowsTotal counts rows by outcome.
	rowsTotal *prometheus.CounterVec

	// peopleTotal counts parsed people.
	peopleTotal prometheus.Counter

	// importDuration observes pipeline duration by channel.
	importDuration *prometheus.HistogramVec
}

// NewRegistry returns a registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// NewRecorder creates the import collectors and registers them with registry.
func NewRecorder(registry *prometheus.Registry) (*Recorder, error) {
	r := &Recorder{
		registry: registry,

		importsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "imports_total",
			Help:      "Total number of imports",
		}, []string{"channel", "status"}), // status: success, partial, failed

		rowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rows_total",
			Help:      "Total number of rows processed",
		}, []string{"outcome"}), // outcome: parsed, failed

		peopleTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "people_total",
			Help:      "Total number of people parsed",
		}),

		importDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Import pipeline duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"channel"}),
	}

	for _, c := range []prometheus.Collector{r.importsTotal, r.rowsTotal, r.peopleTotal, r.importDuration} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register import metrics: %w", err)
		}
	}

	return r, nil
}

// ObserveImport records a finished import.
func (r *Recorder) ObserveImport(channel string, report *model.ImportReport) {
	if r == nil || report == nil {
		return
	}

	r.importsTotal.WithLabelValues(channel, Status(report)).Inc()
	r.importDuration.WithLabelValues(channel).Observe(report.Duration.Seconds())

	if report.Result == nil {
		return
	}

	rowsFailed := report.ErrorCount()
	rowsParsed := report.RowCount() - rowsFailed
	if rowsParsed < 0 {
		rowsParsed = 0
	}

	r.rowsTotal.WithLabelValues(OutcomeParsed).Add(float64(rowsParsed))
	r.rowsTotal.WithLabelValues(OutcomeFailed).Add(float64(rowsFailed))
	r.peopleTotal.Add(float64(report.ProcessedCount()))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Status classifies a report as success, partial or failed.
func Status(report *model.ImportReport) string {
	switch {
	case report.Failed():
		return StatusFailed
	case report.ErrorCount() > 0:
		return StatusPartial
	default:
		return StatusSuccess
	}
}
