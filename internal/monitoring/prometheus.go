// Package monitoring exposes the HTTP-level Prometheus metrics of
// VIGILANTE-CORE and the /metrics endpoint.
//
// Usage:
//
//	router := gin.New()
//	router.Use(monitoring.HTTPMetricsMiddleware())
//	monitoring.SetupPrometheusMetrics(router, "/metrics")
//
// Available metrics:
//   - vigilante_core_http_requests_total{method, endpoint, status_code}
//   - vigilante_core_http_request_duration_seconds{method, endpoint}
//   - vigilante_core_active_connections
//   - vigilante_core_cache_operations_total{operation, result}
//   - vigilante_core_errors_total{type, component}
//   - vigilante_core_build_info{version, component, go_version}
//
// Simulation and advisor metrics live in internal/metrics.
package monitoring

import (
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilante_core_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigilante_core_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	cacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilante_core_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"}, // result: hit, miss, success, error
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigilante_core_active_connections",
			Help: "Number of in-flight HTTP requests",
		},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilante_core_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"}, // type: http, cache, advisor, eventlog
	)
)

func init() {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "vigilante_core_build_info",
		Help: "Build information for VIGILANTE-CORE",
		ConstLabels: prometheus.Labels{
			"version":    Version,
			"component":  "vigilante-core",
			"go_version": runtime.Version(),
		},
	}, func() float64 { return 1 })
}

// SetupPrometheusMetrics mounts the default registry at path.
func SetupPrometheusMetrics(router gin.IRoutes, path string) {
	if path == "" {
		path = "/metrics"
	}
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// HTTPMetricsMiddleware collects HTTP request metrics
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = normalizeEndpoint(c.Request.URL.Path)
		}

		activeConnections.Inc()
		defer activeConnections.Dec()

		c.Next()

		status := c.Writer.Status()
		httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())

		if status >= 500 {
			errorsTotal.WithLabelValues("http", endpoint).Inc()
		}
	}
}

// RecordCacheOperation records cache operation metrics
func RecordCacheOperation(operation, result string) {
	cacheOperationsTotal.WithLabelValues(operation, result).Inc()
	if result == "error" {
		errorsTotal.WithLabelValues("cache", operation).Inc()
	}
}

// RecordError counts a failure outside the HTTP path.
func RecordError(kind, component string) {
	errorsTotal.WithLabelValues(kind, component).Inc()
}

// normalizeEndpoint collapses numeric path segments for unmatched routes.
func normalizeEndpoint(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if i > 0 && isNumeric(part) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
