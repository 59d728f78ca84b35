package antifraud

import "github.com/prometheus/client_golang/prometheus"

var (
	checksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "antifraud",
		Name:      "checks_total",
		Help:      "Total antifraud evaluations by outcome.",
	}, []string{"outcome"})

	rejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "antifraud",
		Name:      "rejections_total",
		Help:      "Total antifraud rejections by triggered rule.",
	}, []string{"rule"})

	blocksActivated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "antifraud",
		Name:      "ip_blocks_activated_total",
		Help:      "Total adaptive IP blocks activated.",
	})
)

func init() {
	prometheus.MustRegister(checksTotal, rejectionsTotal, blocksActivated)
}
