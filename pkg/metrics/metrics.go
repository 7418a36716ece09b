package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// CacheLookups counts lookups per backend, result is hit, miss, expired or error
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_cache_lookups_total",
			Help: "Cache lookups by backend and result",
		},
		[]string{"backend", "result"},
	)

	// CacheWrites counts writes per backend, result is ok or error
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_cache_writes_total",
			Help: "Cache writes by backend and result",
		},
		[]string{"backend", "result"},
	)

	// CachePurged counts rows removed by expiry purges
	CachePurged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_cache_purged_total",
			Help: "Expired cache entries removed by backend",
		},
		[]string{"backend"},
	)

	// UpstreamRequests counts product search calls by outcome
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_upstream_requests_total",
			Help: "Product search API calls by outcome",
		},
		[]string{"outcome"},
	)
)

// Middleware records request counts and latency. /metrics itself is skipped.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
