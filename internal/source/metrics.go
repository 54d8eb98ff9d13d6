package source

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var blocksFetched = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "scrub_indexer_blocks_fetched_total",
		Help: "Total number of blocks covered by committed chunks",
	},
)

func chunkFetchedInc(blocks uint64) {
	blocksFetched.Add(float64(blocks))
}
