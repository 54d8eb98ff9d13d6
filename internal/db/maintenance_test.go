package db

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scrub-finance/scrub-indexer/internal/common"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
)

func setupMaintenanceTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()

	sqlDB, dbPath := openTestDB(t, "WAL")
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS test_data (id INTEGER PRIMARY KEY, data TEXT)`)
	require.NoError(t, err)

	return sqlDB, dbPath
}

func insertRows(t *testing.T, sqlDB *sql.DB, n int) {
	t.Helper()
	for range n {
		_, err := sqlDB.Exec("INSERT INTO test_data (data) VALUES (?)", "vault deposit payload")
		require.NoError(t, err)
	}
}

func TestNewMaintenanceCoordinator_NilConfig(t *testing.T) {
	m := NewMaintenanceCoordinator("unused.db", nil, nil, logger.NewNopLogger())

	require.NoError(t, m.Start(t.Context()))
	m.AcquireOperationLock()()
	require.NoError(t, m.RunMaintenance(t.Context()))
	require.NoError(t, m.Stop())
	require.Zero(t, m.Stats().Runs)
}

func TestMaintenanceCoordinator_RunMaintenance(t *testing.T) {
	sqlDB, dbPath := setupMaintenanceTestDB(t)
	insertRows(t, sqlDB, 1000)

	walInfo, err := os.Stat(dbPath + "-wal")
	require.NoError(t, err)
	require.Positive(t, walInfo.Size())

	coordinator := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{
		WALCheckpointMode: "TRUNCATE",
	}, logger.NewNopLogger())

	require.NoError(t, coordinator.RunMaintenance(context.Background()))

	stats := coordinator.Stats()
	require.Equal(t, uint64(1), stats.Runs)
	require.False(t, stats.LastRun.IsZero())
	require.NoError(t, stats.LastError)

	if walInfo, err = os.Stat(dbPath + "-wal"); err == nil {
		require.Zero(t, walInfo.Size(), "the checkpoint runs after VACUUM")
	}

	var rows int
	require.NoError(t, sqlDB.QueryRow("SELECT COUNT(*) FROM test_data").Scan(&rows))
	require.Equal(t, 1000, rows)
}

func TestMaintenanceCoordinator_MaintenanceWaitsForOperations(t *testing.T) {
	sqlDB, dbPath := setupMaintenanceTestDB(t)
	coordinator := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{
		WALCheckpointMode: "PASSIVE",
	}, logger.NewNopLogger())

	var operationFinished atomic.Bool
	unlock := coordinator.AcquireOperationLock()

	done := make(chan error)
	go func() {
		done <- coordinator.RunMaintenance(context.Background())
	}()

	time.Sleep(50 * time.Millisecond)
	operationFinished.Store(true)
	unlock()

	require.NoError(t, <-done)
	require.True(t, operationFinished.Load())
	require.Equal(t, uint64(1), coordinator.Stats().Runs)
}

func TestMaintenanceCoordinator_BackgroundMaintenance(t *testing.T) {
	sqlDB, dbPath := setupMaintenanceTestDB(t)
	coordinator := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{
		Enabled:           true,
		CheckInterval:     common.NewDuration(50 * time.Millisecond),
		WALCheckpointMode: "PASSIVE",
	}, logger.NewNopLogger())

	require.NoError(t, coordinator.Start(t.Context()))
	insertRows(t, sqlDB, 100)

	require.Eventually(t, func() bool {
		return coordinator.Stats().Runs > 0
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, coordinator.Stop())
}

func TestMaintenanceCoordinator_StartupMaintenance(t *testing.T) {
	sqlDB, dbPath := setupMaintenanceTestDB(t)
	insertRows(t, sqlDB, 100)

	coordinator := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{
		Enabled:           true,
		CheckInterval:     common.NewDuration(time.Hour),
		VacuumOnStartup:   true,
		WALCheckpointMode: "TRUNCATE",
	}, logger.NewNopLogger())

	require.NoError(t, coordinator.Start(t.Context()))
	defer func() { require.NoError(t, coordinator.Stop()) }()

	require.Equal(t, uint64(1), coordinator.Stats().Runs)
}

func TestMaintenanceCoordinator_Disabled(t *testing.T) {
	sqlDB, dbPath := setupMaintenanceTestDB(t)
	coordinator := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{
		CheckInterval:     common.NewDuration(10 * time.Millisecond),
		WALCheckpointMode: "TRUNCATE",
	}, logger.NewNopLogger())

	require.NoError(t, coordinator.Start(t.Context()))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, coordinator.Stop())

	require.Zero(t, coordinator.Stats().Runs)
}

func TestMaintenanceCoordinator_InvalidInterval(t *testing.T) {
	sqlDB, dbPath := setupMaintenanceTestDB(t)
	coordinator := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{
		Enabled: true,
	}, logger.NewNopLogger())

	require.ErrorContains(t, coordinator.Start(t.Context()), "check interval must be positive")
}

func TestMaintenanceCoordinator_ContextCancellation(t *testing.T) {
	sqlDB, dbPath := setupMaintenanceTestDB(t)
	coordinator := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{
		WALCheckpointMode: "TRUNCATE",
	}, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, coordinator.RunMaintenance(ctx), context.Canceled)
	require.Zero(t, coordinator.Stats().Runs)
}

func TestMaintenanceCoordinator_ConcurrentOperations(t *testing.T) {
	sqlDB, dbPath := setupMaintenanceTestDB(t)
	coordinator := newMaintenanceCoordinator(dbPath, sqlDB, config.MaintenanceConfig{
		WALCheckpointMode: "PASSIVE",
	}, logger.NewNopLogger())

	const workers, perWorker = 20, 5
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)

	for range workers {
		wg.Go(func() {
			for range perWorker {
				unlock := coordinator.AcquireOperationLock()
				_, err := sqlDB.Exec("INSERT INTO test_data (data) VALUES (?)", "bet")
				unlock()
				if err == nil {
					succeeded.Add(1)
				}
			}
		})
	}

	var maintenanceErr error
	wg.Go(func() {
		for range 3 {
			if err := coordinator.RunMaintenance(context.Background()); err != nil {
				maintenanceErr = err
			}
		}
	})

	wg.Wait()

	require.NoError(t, maintenanceErr)
	require.Equal(t, int32(workers*perWorker), succeeded.Load())
	require.Equal(t, uint64(3), coordinator.Stats().Runs)
}
