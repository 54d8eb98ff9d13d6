package projection

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons.
const (
	SkipUnrouted     = "unrouted"
	SkipInvalidParam = "invalid_param"
)

var (
	eventsProjected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrub_indexer_events_projected_total",
			Help: "Total number of events applied by a handler",
		},
		[]string{"kind"},
	)

	handlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrub_indexer_handler_duration_seconds",
			Help:    "Duration of a single handler invocation, contract reads included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	eventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrub_indexer_events_skipped_total",
			Help: "Total number of events dropped without effect by reason",
		},
		[]string{"reason"},
	)

	contractReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrub_indexer_contract_reads_total",
			Help: "Total number of authoritative contract reads by outcome",
		},
		[]string{"method", "outcome"},
	)

	versionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrub_indexer_version_fallbacks_total",
			Help: "Total number of post-upgrade events that fell back to accumulation",
		},
		[]string{"field"},
	)

	lookupMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrub_indexer_lookup_misses_total",
			Help: "Total number of expected entities that had to be created on the fly",
		},
		[]string{"entity"},
	)

	counterUnderflows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrub_indexer_counter_underflows_total",
			Help: "Total number of cardinality counters that would have gone below zero",
		},
		[]string{"counter"},
	)

	lastProjectedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scrub_indexer_last_projected_block",
			Help: "The checkpoint of the last committed chunk",
		},
	)

	chunkDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrub_indexer_chunk_projection_duration_seconds",
			Help:    "Time taken to project and commit one chunk",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func EventProjectedInc(kind string) {
	eventsProjected.WithLabelValues(kind).Inc()
}

func HandlerDuration(kind string, duration time.Duration) {
	handlerDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func EventSkippedInc(reason string) {
	eventsSkipped.WithLabelValues(reason).Inc()
}

func ContractReadInc(method, outcome string) {
	contractReads.WithLabelValues(method, outcome).Inc()
}

func VersionFallbackInc(field string) {
	versionFallbacks.WithLabelValues(field).Inc()
}

func LookupMissInc(entity string) {
	lookupMisses.WithLabelValues(entity).Inc()
}

func CounterUnderflowInc(counter string) {
	counterUnderflows.WithLabelValues(counter).Inc()
}

func LastProjectedBlockSet(block uint64) {
	lastProjectedBlock.Set(float64(block))
}

func ChunkDuration(duration time.Duration) {
	chunkDuration.Observe(duration.Seconds())
}
