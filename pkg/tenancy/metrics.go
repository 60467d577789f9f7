package tenancy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tendant/simple-tenant/pkg/domain"
)

var (
	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tenancy",
		Name:      "resolutions_total",
		Help:      "Total number of request tenant resolutions broken down by the step that produced them.",
	}, []string{"source"})

	isolationViolations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tenancy",
		Name:      "isolation_violations_total",
		Help:      "Total number of blocked reads or writes that crossed a tenant boundary.",
	})
)

func recordResolution(source domain.ResolutionSource) {
	resolutions.WithLabelValues(string(source)).Inc()
}

// RecordIsolationViolation counts a blocked cross-tenant access.
func RecordIsolationViolation() {
	isolationViolations.Inc()
}
