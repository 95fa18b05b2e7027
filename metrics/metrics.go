package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beachfinder_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beachfinder_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "beachfinder_http_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)

	// ImageOperations counts image-management commands by action and outcome
	// (ok, invalid, not_found, forbidden, error).
	ImageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beachfinder_image_operations_total",
			Help: "Total number of image management operations",
		},
		[]string{"action", "outcome"},
	)

	ImageBytesSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beachfinder_image_bytes_saved_total",
			Help: "Bytes saved by re-encoding uploaded images",
		},
	)

	ImageOptimizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "beachfinder_image_optimize_duration_seconds",
			Help:    "Time spent optimizing uploaded images",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "beachfinder_websocket_connections",
			Help: "Number of connected admin websocket clients",
		},
	)
)

// RecordAPIRequest records one finished HTTP request.
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	APIRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordImageOperation counts a finished image command.
func RecordImageOperation(action, outcome string) {
	ImageOperations.WithLabelValues(action, outcome).Inc()
}

// RecordImageOptimized records optimizer timing and the bytes it saved.
func RecordImageOptimized(duration time.Duration, savedBytes int64) {
	ImageOptimizeDuration.Observe(duration.Seconds())
	if savedBytes > 0 {
		ImageBytesSaved.Add(float64(savedBytes))
	}
}
