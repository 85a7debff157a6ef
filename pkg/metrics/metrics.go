package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegistrationsTotal counts successful user registrations.
var RegistrationsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "bitsecure_registrations_total",
		Help: "Total number of registered accounts",
	},
)

// TransactionsCreated counts ledger entries by type (deposit/withdrawal).
var TransactionsCreated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bitsecure_transactions_created_total",
		Help: "Total number of transactions recorded in the ledger",
	},
	[]string{"type"},
)

// ApprovalsTotal counts admin approval decisions by outcome (approved/rejected).
var ApprovalsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bitsecure_approvals_total",
		Help: "Total number of admin approval decisions",
	},
	[]string{"outcome"},
)

// NotificationsEmitted counts notifications appended to the sink by type.
var NotificationsEmitted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bitsecure_notifications_emitted_total",
		Help: "Total number of notifications emitted",
	},
	[]string{"type"},
)

// HTTPRequestDuration records request latency by method, path and status.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "bitsecure_http_request_duration_seconds",
		Help:    "Latency in seconds of HTTP requests",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

func init() {
	prometheus.MustRegister(RegistrationsTotal, TransactionsCreated, ApprovalsTotal, NotificationsEmitted, HTTPRequestDuration)
}

// Middleware records per-request latency metrics for gin routes.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the prometheus registry for GET /metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
