package anomaly

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// rejections counts rejected submissions by reason.
var rejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "autoreply",
		Subsystem: "anomaly",
		Name:      "rejections_total",
		Help:      "Total submissions rejected by the anomaly filter, by reason",
	},
	[]string{"reason"},
)
