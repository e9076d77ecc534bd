package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// entriesGauge tracks the number of live cache entries.
	entriesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "autoreply",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of live cache entries",
		},
	)

	// lookups counts cache lookups by result.
	lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autoreply",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total cache lookups by result",
		},
		[]string{"result"},
	)

	// evictions counts sweep evictions by reason.
	evictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autoreply",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Total cache evictions by reason",
		},
		[]string{"reason"},
	)
)
