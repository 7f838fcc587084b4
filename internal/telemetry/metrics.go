// Package telemetry exposes Prometheus metrics for the aggregation path.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	// Record store fetch latency per collection
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "renohub_record_fetch_duration_seconds",
			Help:    "Record store fetch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"collection", "outcome"},
	)

	// Full snapshot build latency
	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "renohub_aggregation_duration_seconds",
			Help:    "Snapshot aggregation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"outcome"},
	)

	// Text generation latency (milliseconds)
	GenerateLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "renohub_generate_latency_ms",
			Help:    "Text generation call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"kind", "outcome"},
	)

	VendorCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renohub_vendor_cache_lookups_total",
			Help: "Vendor trade cache lookups",
		},
		[]string{"result"}, // result: hit, miss
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "renohub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// RecordFetch records one record store call
func RecordFetch(collection string, err error, d time.Duration) {
	FetchDuration.WithLabelValues(collection, Outcome(err)).Observe(d.Seconds())
}

// RecordAggregation records one snapshot build
func RecordAggregation(err error, d time.Duration) {
	AggregationDuration.WithLabelValues(Outcome(err)).Observe(d.Seconds())
}

// RecordGenerate records one text generation call
func RecordGenerate(kind string, err error, d time.Duration) {
	GenerateLatency.WithLabelValues(kind, Outcome(err)).Observe(float64(d.Milliseconds()))
}

// RecordCacheLookup counts a vendor cache hit or miss
func RecordCacheLookup(hit bool) {
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	VendorCacheLookups.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records one served request
func RecordHTTPRequest(method, path, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
