package webhooks

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveriesEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "webhooks",
		Name:      "enqueued_total",
		Help:      "Merchant deliveries created.",
	})

	deliveriesByOutcome = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "webhooks",
		Name:      "attempts_total",
		Help:      "Delivery attempt outcomes.",
	}, []string{"outcome"})

	deliveryAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tucano",
		Subsystem: "webhooks",
		Name:      "attempts_to_success",
		Help:      "Attempts needed before a delivery succeeded.",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})
)

func init() {
	prometheus.MustRegister(deliveriesEnqueued, deliveriesByOutcome, deliveryAttempts)
}
