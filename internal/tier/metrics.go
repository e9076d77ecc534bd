package tier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// transitions counts tier moves, including removals.
var transitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "autoreply",
		Subsystem: "tier",
		Name:      "transitions_total",
		Help:      "Total tier transitions by source and destination",
	},
	[]string{"from", "to"},
)
