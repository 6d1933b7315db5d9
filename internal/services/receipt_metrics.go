package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// receiptsCreated counts persisted receipts by delivery outcome.
	receiptsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipts_created_total",
			Help: "Receipts rendered and persisted, by whether the email was sent.",
		},
		[]string{"emailed"},
	)

	// receiptFailures counts failures per workflow stage
	// (render, store, deliver, index).
	receiptFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipt_failures_total",
			Help: "Receipt workflow failures by stage.",
		},
		[]string{"stage"},
	)

	receiptRenderSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "receipt_render_duration_seconds",
			Help:    "Time spent rendering receipt PDFs.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
)

func init() {
	prometheus.MustRegister(receiptsCreated, receiptFailures, receiptRenderSeconds)
}
