// Package metrics declares the Prometheus collectors of the API. Collectors
// are registered on the default registry at init and served at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a report submission can be refused. They match the error codes in
// API responses.
const (
	RejectUnauthenticated = "unauthenticated"
	RejectNotFound        = "not_found"
	RejectInvalid         = "invalid"
	RejectTooFar          = "too_far"
	RejectNoConsent       = "no_consent"
	RejectRateLimited     = "rate_limited"
	RejectError           = "error"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quietlocations_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quietlocations_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ReportsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quietlocations_occupancy_reports_accepted_total",
			Help: "Occupancy reports written to the ledger",
		},
	)

	ReportsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quietlocations_occupancy_reports_rejected_total",
			Help: "Occupancy report submissions refused, by reason",
		},
		[]string{"reason"},
	)

	// ReportDistance observes how far accepted and rejected devices were from
	// the location, which is what the proximity radius gets tuned against.
	ReportDistance = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quietlocations_report_distance_meters",
			Help:    "Device distance from the reported location",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 5000, 25000},
		},
	)

	SeedRecordsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quietlocations_seed_records_total",
			Help: "Catalog records processed by bulk import, by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordHTTP observes one finished request. route is the chi route pattern,
// never the raw path, to keep label cardinality bounded.
func RecordHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
