package record

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// QuarantinedRecords counts persisted records skipped during load because
// they were corrupted or carried an incompatible format version.
var QuarantinedRecords = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "autoreply",
		Subsystem: "record",
		Name:      "quarantined_records_total",
		Help:      "Total number of records quarantined during store loads",
	},
)
