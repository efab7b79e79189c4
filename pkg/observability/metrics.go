package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metric instruments
type Metrics struct {
	AnalysesTotal       *prometheus.CounterVec
	UnitsTotal          *prometheus.CounterVec
	UnitDurationSeconds prometheus.Histogram
	ActiveUnits         prometheus.Gauge
	FindingsTotal       *prometheus.CounterVec
	RetriesTotal        *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers all metrics on the default registerer.
func NewMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer))
}

// NewMetricsWith registers on an explicit registerer; tests use this to
// avoid duplicate-registration panics.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	return newMetrics(promauto.With(reg))
}

func newMetrics(f promauto.Factory) *Metrics {
	return &Metrics{
		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_analyses_total",
			Help: "Total number of analysis runs",
		}, []string{"status"}),

		UnitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_units_total",
			Help: "Total number of evaluation units",
		}, []string{"status"}),

		UnitDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "atlas_unit_duration_seconds",
			Help:    "Duration of single evaluation units in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		ActiveUnits: f.NewGauge(prometheus.GaugeOpts{
			Name: "atlas_active_units",
			Help: "Number of units currently running",
		}),

		FindingsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_findings_total",
			Help: "Total findings produced, by severity",
		}, []string{"severity"}),

		RetriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_retries_total",
			Help: "Total retry attempts on transient failures",
		}, []string{"operation"}),

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status_code"}),

		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atlas_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0},
		}, []string{"method", "path"}),
	}
}

// RecordUnitStart increments the active units gauge
func (m *Metrics) RecordUnitStart() {
	m.ActiveUnits.Inc()
}

// RecordUnitEnd records unit completion
func (m *Metrics) RecordUnitEnd(status string, duration float64) {
	m.ActiveUnits.Dec()
	m.UnitsTotal.WithLabelValues(status).Inc()
	m.UnitDurationSeconds.Observe(duration)
}

// RecordAnalysis records the terminal status of a whole run
func (m *Metrics) RecordAnalysis(status string) {
	m.AnalysesTotal.WithLabelValues(status).Inc()
}

// RecordFindings adds to the per-severity finding counters
func (m *Metrics) RecordFindings(severity string, count int) {
	if count > 0 {
		m.FindingsTotal.WithLabelValues(severity).Add(float64(count))
	}
}

// RecordRetry counts one retry attempt for an operation
func (m *Metrics) RecordRetry(operation string) {
	m.RetriesTotal.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest records one served request. Path should be the
// route pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}
