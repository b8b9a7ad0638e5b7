package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	tfRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tf_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	tfRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tf_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	tfLoansTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tf_loans_total",
		Help: "Number of loans by status.",
	}, []string{"status"})

	tfLedgerTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tf_ledger_transactions_total",
		Help: "Total ledger transactions appended, by type.",
	}, []string{"type"})

	tfLedgerInvalid = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tf_ledger_invalid_transactions",
		Help: "Transactions flagged by the most recent chain verification.",
	})

	tfOverdueSweepTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tf_overdue_sweep_loans_total",
		Help: "Total loans moved to overdue by the scheduled sweep.",
	})
)

// PrometheusMiddleware returns a gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		tfRequestsTotal.WithLabelValues(method, path, status).Inc()
		tfRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordLedgerAppend records a ledger transaction append.
func RecordLedgerAppend(txType string) {
	tfLedgerTransactionsTotal.WithLabelValues(txType).Inc()
}

// SetLedgerInvalid publishes the invalid-transaction count from a chain
// verification run.
func SetLedgerInvalid(count int) {
	tfLedgerInvalid.Set(float64(count))
}

// SetLoansGauge sets the loan count gauge for a given status.
func SetLoansGauge(status string, count float64) {
	tfLoansTotal.WithLabelValues(status).Set(count)
}

// RecordOverdueSweep records loans moved to overdue by the sweep.
func RecordOverdueSweep(count int64) {
	tfOverdueSweepTotal.Add(float64(count))
}
