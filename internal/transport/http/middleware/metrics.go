package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics instruments the diagnostics listener's requests.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewHTTPMetrics constructs and registers the HTTP collectors. Re-registering
// against the same registerer reuses the existing collectors.
func NewHTTPMetrics(namespace string, reg prometheus.Registerer) (*HTTPMetrics, error) {
	if namespace == "" {
		namespace = "authkit"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests partitioned by method, route, and status code.",
	}, []string{"method", "route", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latencies in seconds partitioned by method, route, and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	if err := reg.Register(requests); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		requests = already.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(duration); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		duration = already.ExistingCollector.(*prometheus.HistogramVec)
	}

	return &HTTPMetrics{Requests: requests, Duration: duration}, nil
}

// Handler returns the Gin middleware recording the collectors.
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}

		m.Requests.With(labels).Inc()
		m.Duration.With(labels).Observe(time.Since(start).Seconds())
	}
}
