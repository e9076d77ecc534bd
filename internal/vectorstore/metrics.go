package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// documentsGauge tracks the number of fingerprint documents stored.
var documentsGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "autoreply",
		Subsystem: "vectorstore",
		Name:      "documents",
		Help:      "Current number of documents in the vector store",
	},
)
