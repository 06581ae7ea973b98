// Package metrics provides Prometheus metrics for the clinic point-of-service API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	TransactionsCreated   *prometheus.CounterVec
	TransactionsFailed    *prometheus.CounterVec
	TransactionNetTotal   prometheus.Histogram
	CreateDuration        prometheus.Histogram
	LabUpdates            *prometheus.CounterVec
	Reconciliations       *prometheus.CounterVec
	SequenceFailures      prometheus.Counter
	AuditDropped          prometheus.Counter
	EventsPublished       prometheus.Counter
	EventsPublishFailures prometheus.Counter
	HTTPRequests          *prometheus.CounterVec
	HTTPDuration          *prometheus.HistogramVec
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates all metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TransactionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_transactions_created_total",
			Help: "Total transactions created",
		}, []string{"payment_method", "payment_status"}),
		TransactionsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_transactions_failed_total",
			Help: "Total failed transaction creations by reason",
		}, []string{"reason"}),
		TransactionNetTotal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clinic_transaction_net_total",
			Help:    "Net total of created transactions",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000},
		}),
		CreateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clinic_transaction_create_duration_seconds",
			Help:    "Transaction creation duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		LabUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_lab_test_updates_total",
			Help: "Total lab test status updates",
		}, []string{"status"}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_reconciliations_total",
			Help: "Total reconciliation workflow actions",
		}, []string{"action", "status"}),
		SequenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_sequence_allocation_failures_total",
			Help: "Total failed sequence number allocations",
		}),
		AuditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_audit_entries_dropped_total",
			Help: "Audit entries that could not be written",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_transaction_events_published_total",
			Help: "Transaction events delivered to the message bus",
		}),
		EventsPublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_transaction_events_publish_failures_total",
			Help: "Failed relay batches",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
	}

	reg.MustRegister(
		m.TransactionsCreated,
		m.TransactionsFailed,
		m.TransactionNetTotal,
		m.CreateDuration,
		m.LabUpdates,
		m.Reconciliations,
		m.SequenceFailures,
		m.AuditDropped,
		m.EventsPublished,
		m.EventsPublishFailures,
		m.HTTPRequests,
		m.HTTPDuration,
		m.CircuitBreakerState,
	)

	return m
}

// NewNop returns metrics registered on a private registry, for tests and tools
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
