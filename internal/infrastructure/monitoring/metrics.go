package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
//
// Every recording method is safe to call on a nil *Metrics, so components can
// take metrics as an optional dependency.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Transaction metrics
	TransactionsStarted  prometheus.Counter
	TransactionsFinished *prometheus.CounterVec
	TransactionsMissing  prometheus.Counter

	// Event metrics
	EventsSent *prometheus.CounterVec
	Panics     prometheus.Counter
}

// NewMetrics creates the metric set and registers it with reg. A nil reg
// registers with the Prometheus default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),

		// Transaction metrics
		TransactionsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tracing_transactions_started_total",
				Help: "Total number of request transactions started",
			},
		),
		TransactionsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracing_transactions_finished_total",
				Help: "Total number of request transactions finished, by trace status",
			},
			[]string{"status"},
		),
		TransactionsMissing: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tracing_transactions_missing_total",
				Help: "Responses that found no cached transaction and used a placeholder",
			},
		),

		// Event metrics
		EventsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracing_events_sent_total",
				Help: "Total number of events handed to the monitoring client",
			},
			[]string{"kind"},
		),
		Panics: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tracing_panics_total",
				Help: "Total number of handler panics captured",
			},
		),
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(seconds)
}

// TransactionStarted counts a transaction opened for a request.
func (m *Metrics) TransactionStarted() {
	if m == nil {
		return
	}
	m.TransactionsStarted.Inc()
}

// TransactionFinished counts a finished transaction by trace status.
func (m *Metrics) TransactionFinished(status string) {
	if m == nil {
		return
	}
	m.TransactionsFinished.WithLabelValues(status).Inc()
}

// TransactionMissing counts a placeholder substitution.
func (m *Metrics) TransactionMissing() {
	if m == nil {
		return
	}
	m.TransactionsMissing.Inc()
}

// EventSent counts an event handed to the monitoring client ("error" or "transaction").
func (m *Metrics) EventSent(kind string) {
	if m == nil {
		return
	}
	m.EventsSent.WithLabelValues(kind).Inc()
}

// PanicCaptured counts a recovered handler panic.
func (m *Metrics) PanicCaptured() {
	if m == nil {
		return
	}
	m.Panics.Inc()
}
