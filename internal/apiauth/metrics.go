package apiauth

import "github.com/prometheus/client_golang/prometheus"

var (
	authRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "apiauth",
		Name:      "rejections_total",
		Help:      "Authentication rejections by code.",
	}, []string{"code"})

	authAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tucano",
		Subsystem: "apiauth",
		Name:      "accepted_total",
		Help:      "Successfully authenticated requests.",
	})
)

func init() {
	prometheus.MustRegister(authRejections, authAccepted)
}
