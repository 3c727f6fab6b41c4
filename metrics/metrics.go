// Package metrics declares the Prometheus collectors of the sharepool host and ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sharepool_build_info",
			Help: "Build information of the sharepool binary",
		},
		[]string{"version", "commit", "date"},
	)

	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharepool_operations_total",
			Help: "Total number of contract method calls",
		},
		[]string{"method", "status"},
	)

	DisbursementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharepool_disbursements_total",
			Help: "Total number of reward token transfers dispatched by burns",
		},
		[]string{"status"},
	)

	ReceiptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharepool_host_receipts_total",
			Help: "Total number of receipts executed by the host",
		},
		[]string{"status"},
	)

	ReceiptDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sharepool_host_receipt_duration_seconds",
			Help:    "Duration of receipt execution",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~205ms
		},
	)

	TotalShares = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sharepool_total_shares",
			Help: "Shares outstanding after the last committed call, as a float approximation",
		},
	)
)
