package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HoldsAcquiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holds_acquired_total",
			Help: "Hold acquisitions by result",
		},
		[]string{"result"},
	)

	HoldsReleasedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "holds_released_total",
			Help: "Explicit hold releases",
		},
	)

	CapacityRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "capacity_rejections_total",
			Help: "Hold requests rejected for insufficient capacity",
		},
	)

	OrdersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created from holds",
		},
	)

	OrdersFinalizedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_finalized_total",
			Help: "Orders finalized after payment",
		},
	)

	OrdersExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_expired_total",
			Help: "Orders reclaimed by the expiry sweep",
		},
	)

	CheckinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_total",
			Help: "Check-in attempts by result",
		},
		[]string{"result"},
	)

	AvailabilityCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_cache_total",
			Help: "Availability snapshot cache lookups",
		},
		[]string{"result"},
	)
)

// ObserveHTTPRequest records one finished HTTP request.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
