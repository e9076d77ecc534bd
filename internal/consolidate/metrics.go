package consolidate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "autoreply",
		Subsystem: "consolidate",
		Name:      "runs_total",
		Help:      "Completed consolidation passes.",
	})

	mergedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "autoreply",
		Subsystem: "consolidate",
		Name:      "merged_entries_total",
		Help:      "Cache entries absorbed into cluster survivors.",
	})
)
