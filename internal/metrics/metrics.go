package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, recorded by the metrics middleware for every request.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, path and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and path",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Payment lifecycle metrics.
var (
	PaymentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_created_total",
		Help: "Payments successfully created",
	})

	PaymentsVoided = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_voided_total",
		Help: "Completed payments voided to Failed",
	})

	PaymentsRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_retried_total",
		Help: "Failed payments successfully retried",
	})

	PaymentConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_claim_conflicts_total",
		Help: "Payment attempts rejected because a delivery was already claimed",
	})

	PaymentAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_amount_paid_total",
		Help: "Cumulative amount paid out across all Completed payments",
	})
)
