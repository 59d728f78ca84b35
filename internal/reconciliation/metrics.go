package reconciliation

import "github.com/prometheus/client_golang/prometheus"

var (
	mismatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "reconciliation",
		Name:      "mismatches_total",
		Help:      "Mismatches found, by provider and classification.",
	}, []string{"provider", "type"})

	mismatchGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tucano",
		Subsystem: "reconciliation",
		Name:      "last_run_mismatches",
		Help:      "Mismatch count of the most recent run.",
	})

	runErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "reconciliation",
		Name:      "provider_errors_total",
		Help:      "Provider report fetches that failed during a run.",
	}, []string{"provider"})
)

func init() {
	prometheus.MustRegister(mismatchesTotal, mismatchGauge, runErrors)
}
