// Package metrics owns the Prometheus registry and the collectors the API exports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	bookingOutcomes *prometheus.CounterVec
	bookingDuration *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		bookingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_operations_total",
			Help: "Appointment operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		bookingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appointment_operation_duration_seconds",
			Help:    "Latency of appointment operations, including commit retries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.bookingOutcomes,
		m.bookingDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// ObserveAppointment records one Book, Reschedule, Cancel or status change.
func (m *Metrics) ObserveAppointment(operation, outcome string, elapsed time.Duration) {
	m.bookingOutcomes.WithLabelValues(operation, outcome).Inc()
	m.bookingDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
