package embeddings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// embedRequests counts embedding calls per provider and result.
var embedRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "autoreply",
		Subsystem: "embeddings",
		Name:      "requests_total",
		Help:      "Total embedding requests by provider and result",
	},
	[]string{"provider", "result"},
)
