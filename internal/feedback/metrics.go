package feedback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autoreply",
		Subsystem: "feedback",
		Name:      "events_applied_total",
		Help:      "Feedback events applied, by verdict and target store.",
	}, []string{"verdict", "target"})

	generalizations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "autoreply",
		Subsystem: "feedback",
		Name:      "generalizations_total",
		Help:      "Cache entries generalized into pathways.",
	})
)
