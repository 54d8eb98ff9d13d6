package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	maintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrub_indexer_sqlite_maintenance_runs_total",
			Help: "Total number of sqlite maintenance runs by outcome",
		},
		[]string{"status"},
	)

	maintenanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrub_indexer_sqlite_maintenance_duration_seconds",
			Help:    "Duration of sqlite maintenance runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	maintenanceLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scrub_indexer_sqlite_maintenance_last_run_timestamp",
			Help: "Unix timestamp of the last maintenance run",
		},
	)

	walCheckpoints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrub_indexer_sqlite_wal_checkpoint_total",
			Help: "Total number of WAL checkpoints by mode",
		},
		[]string{"mode"},
	)

	dbSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scrub_indexer_sqlite_size_bytes",
			Help: "Combined size of the database, WAL and shared memory files",
		},
	)
)

func maintenanceFinished(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	maintenanceRuns.WithLabelValues(status).Inc()
	maintenanceDuration.Observe(duration.Seconds())
	maintenanceLastRun.Set(float64(time.Now().UTC().Unix()))
}

func walCheckpointInc(mode string) {
	walCheckpoints.WithLabelValues(mode).Inc()
}

func dbSizeLog(size int64) {
	dbSize.Set(float64(size))
}
