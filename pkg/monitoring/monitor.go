package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	ExtractionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_package_extractions_total",
			Help: "Package extraction outcomes by kind",
		},
		[]string{"kind", "outcome"},
	)

	RuntimeCallCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_scorm_api_calls_total",
			Help: "SCORM runtime API calls by method and error code",
		},
		[]string{"method", "error_code"},
	)

	StatementCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_xapi_statements_total",
			Help: "Ingested progress statements by verb",
		},
		[]string{"verb"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ExtractionCounter)
	prometheus.MustRegister(RuntimeCallCounter)
	prometheus.MustRegister(StatementCounter)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
