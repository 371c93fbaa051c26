package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "data_manager"

var (
	// Registry holds the service's collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "operation", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
		[]string{"method", "operation"},
	)

	orderTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transactions_total",
			Help:      "Order transactions by outcome.",
		},
		[]string{"outcome"},
	)

	queryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queries",
			Name:      "failures_total",
			Help:      "Failed read operations by resource.",
		},
		[]string{"resource"},
	)
)

// Order transaction outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeNotFound  = "not_found"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		orderTransactions,
		queryFailures,
	)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func ObserveHTTP(method, operation string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, operation, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, operation).Observe(elapsed.Seconds())
}

func RecordOrderTransaction(outcome string) {
	orderTransactions.WithLabelValues(outcome).Inc()
}

func RecordQueryFailure(resource string) {
	queryFailures.WithLabelValues(resource).Inc()
}

// OrderTransactions exposes the outcome counter to tests.
func OrderTransactions(outcome string) prometheus.Counter {
	return orderTransactions.WithLabelValues(outcome)
}

// QueryFailures exposes the read failure counter to tests.
func QueryFailures(resource string) prometheus.Counter {
	return queryFailures.WithLabelValues(resource)
}
