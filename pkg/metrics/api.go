package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// APIMetrics provides observability for the HTTP API.
//
// Example usage:
//
//	// With metrics enabled
//	m := metrics.NewAPIMetrics()
//	srv := api.NewServer(config, dirs, files, m)
//
//	// Without metrics (no-op)
//	srv := api.NewServer(config, dirs, files, nil)
type APIMetrics interface {
	// RecordRequest records a completed HTTP request.
	//
	// Parameters:
	//   - route: Route pattern (e.g., "/api/v1/folder")
	//   - method: HTTP method
	//   - statusCode: Response status code
	//   - duration: Time taken to serve the request
	RecordRequest(route, method string, statusCode int, duration time.Duration)

	// RecordRequestStart increments the in-flight request gauge.
	RecordRequestStart(method string)

	// RecordRequestEnd decrements the in-flight request gauge.
	RecordRequestEnd(method string)

	// RecordBytesTransferred records file payload bytes.
	//
	// Parameters:
	//   - direction: "upload" or "download"
	//   - bytes: Number of bytes transferred
	RecordBytesTransferred(direction string, bytes int64)

	// RecordRateLimited increments the rejected-by-rate-limit counter.
	RecordRateLimited()
}

// apiMetrics is the Prometheus implementation of APIMetrics.
type apiMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	bytesTransferred *prometheus.CounterVec
	rateLimited      prometheus.Counter
}

// NewAPIMetrics creates an APIMetrics instance on the global registry.
//
// Returns a no-op implementation if metrics are not enabled.
func NewAPIMetrics() APIMetrics {
	if !IsEnabled() {
		return NewNoopAPIMetrics()
	}
	return NewAPIMetricsWith(GetRegistry())
}

// NewAPIMetricsWith registers API metrics on reg.
func NewAPIMetricsWith(reg prometheus.Registerer) APIMetrics {
	return &apiMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodir_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittodir_http_request_duration_milliseconds",
				Help: "Duration of HTTP requests in milliseconds",
				Buckets: []float64{
					1,     // 1ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
					10000, // 10s
				},
			},
			[]string{"route", "method"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dittodir_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
			[]string{"method"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodir_file_bytes_transferred_total",
				Help: "Total file payload bytes uploaded and downloaded",
			},
			[]string{"direction"},
		),
		rateLimited: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittodir_http_rate_limited_total",
				Help: "Total number of requests rejected by the per-owner rate limit",
			},
		),
	}
}

func (m *apiMetrics) RecordRequest(route, method string, statusCode int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds() * 1000) // Convert to milliseconds
}

func (m *apiMetrics) RecordRequestStart(method string) {
	m.requestsInFlight.WithLabelValues(method).Inc()
}

func (m *apiMetrics) RecordRequestEnd(method string) {
	m.requestsInFlight.WithLabelValues(method).Dec()
}

func (m *apiMetrics) RecordBytesTransferred(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *apiMetrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

// noopAPIMetrics is a no-op implementation of APIMetrics with zero overhead.
type noopAPIMetrics struct{}

// NewNoopAPIMetrics returns an APIMetrics that discards everything.
func NewNoopAPIMetrics() APIMetrics {
	return noopAPIMetrics{}
}

func (noopAPIMetrics) RecordRequest(route, method string, statusCode int, duration time.Duration) {}
func (noopAPIMetrics) RecordRequestStart(method string)                                            {}
func (noopAPIMetrics) RecordRequestEnd(method string)                                              {}
func (noopAPIMetrics) RecordBytesTransferred(direction string, bytes int64)                        {}
func (noopAPIMetrics) RecordRateLimited()                                                          {}
