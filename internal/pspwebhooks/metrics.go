package pspwebhooks

import "github.com/prometheus/client_golang/prometheus"

var (
	webhooksReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "pspwebhooks",
		Name:      "received_total",
		Help:      "Inbound provider webhooks accepted for processing.",
	}, []string{"provider"})

	webhookRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "pspwebhooks",
		Name:      "rejected_total",
		Help:      "Inbound provider webhooks rejected at validation.",
	}, []string{"provider", "code"})

	webhooksUnmatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "pspwebhooks",
		Name:      "unmatched_total",
		Help:      "Webhooks that matched no known payment.",
	}, []string{"provider"})

	statusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "pspwebhooks",
		Name:      "status_transitions_total",
		Help:      "Payment status transitions applied from webhooks.",
	}, []string{"provider", "status"})
)

func init() {
	prometheus.MustRegister(webhooksReceived, webhookRejections, webhooksUnmatched, statusTransitions)
}
