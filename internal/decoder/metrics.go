package decoder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	logsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrub_indexer_logs_decoded_total",
			Help: "Total number of logs decoded into envelopes by data source",
		},
		[]string{"source"},
	)

	logsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrub_indexer_logs_skipped_total",
			Help: "Total number of logs dropped before projection by reason",
		},
		[]string{"reason"},
	)
)

func logDecodedInc(source string) {
	logsDecoded.WithLabelValues(source).Inc()
}

func logSkippedInc(reason string) {
	logsSkipped.WithLabelValues(reason).Inc()
}
