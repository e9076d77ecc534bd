package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "autoreply",
		Subsystem: "engine",
		Name:      "requests_total",
		Help:      "Resolution requests received.",
	})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autoreply",
		Subsystem: "engine",
		Name:      "resolutions_total",
		Help:      "Successful resolutions, by answer source.",
	}, []string{"source"})

	autonomyRate = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "autoreply",
		Subsystem: "engine",
		Name:      "autonomy_rate",
		Help:      "Fraction of requests answered without a model call.",
	})
)
