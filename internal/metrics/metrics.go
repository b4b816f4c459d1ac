package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletd_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletd_operations_total",
			Help: "Balance operations by type and outcome",
		},
		[]string{"type", "result"},
	)

	WalletsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletd_wallets_created_total",
			Help: "Total number of wallets created",
		},
	)

	WalletsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletd_wallets_deleted_total",
			Help: "Total number of wallets deleted",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordOperation(opType, result string) {
	OperationsTotal.WithLabelValues(opType, result).Inc()
}

func RecordWalletCreated() {
	WalletsCreatedTotal.Inc()
}

func RecordWalletDeleted() {
	WalletsDeletedTotal.Inc()
}
