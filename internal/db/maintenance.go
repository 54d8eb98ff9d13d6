package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/scrub-finance/scrub-indexer/internal/common"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
)

// Maintenance checkpoints and compacts the sqlite file while the store is running.
// Store transactions hold the operation lock so maintenance never runs mid-batch.
type Maintenance interface {
	Start(ctx context.Context) error
	Stop() error
	// AcquireOperationLock returns the matching unlock function.
	AcquireOperationLock() func()
	RunMaintenance(ctx context.Context) error
	Stats() MaintenanceStats
}

// MaintenanceStats reports what the coordinator has done so far.
type MaintenanceStats struct {
	LastRun   time.Time
	Runs      uint64
	LastError error
}

type noOpMaintenance struct{}

func (noOpMaintenance) Start(context.Context) error          { return nil }
func (noOpMaintenance) Stop() error                          { return nil }
func (noOpMaintenance) AcquireOperationLock() func()         { return func() {} }
func (noOpMaintenance) RunMaintenance(context.Context) error { return nil }
func (noOpMaintenance) Stats() MaintenanceStats              { return MaintenanceStats{} }

// MaintenanceCoordinator serializes maintenance against store transactions with a RWMutex:
// transactions take the read side, maintenance takes the write side.
type MaintenanceCoordinator struct {
	db     *sql.DB
	dbPath string
	config config.MaintenanceConfig
	log    *logger.Logger

	opLock sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsLock sync.Mutex
	stats     MaintenanceStats
}

// NewMaintenanceCoordinator returns a no-op implementation when cfg is nil.
func NewMaintenanceCoordinator(
	dbPath string,
	db *sql.DB,
	cfg *config.MaintenanceConfig,
	log *logger.Logger,
) Maintenance {
	if cfg == nil {
		return noOpMaintenance{}
	}

	return newMaintenanceCoordinator(dbPath, db, *cfg, log)
}

func newMaintenanceCoordinator(
	dbPath string,
	db *sql.DB,
	cfg config.MaintenanceConfig,
	log *logger.Logger,
) *MaintenanceCoordinator {
	return &MaintenanceCoordinator{
		db:     db,
		dbPath: dbPath,
		config: cfg,
		log:    log.WithComponent(common.ComponentMaintenance),
	}
}

// Start runs the optional startup pass and launches the periodic worker.
func (m *MaintenanceCoordinator) Start(ctx context.Context) error {
	if !m.config.Enabled {
		m.log.Info("background maintenance is disabled")
		return nil
	}

	if m.config.CheckInterval.Duration <= 0 {
		return fmt.Errorf("maintenance check interval must be positive, got %v", m.config.CheckInterval.Duration)
	}

	ctx, m.cancel = context.WithCancel(ctx)

	if m.config.VacuumOnStartup {
		if err := m.RunMaintenance(ctx); err != nil {
			m.log.Warnf("startup maintenance failed: %v", err)
		}
	}

	m.wg.Add(1)
	go m.worker(ctx, m.config.CheckInterval.Duration)

	m.log.Infow("background maintenance started",
		"interval", m.config.CheckInterval.Duration,
		"checkpointMode", m.config.WALCheckpointMode)

	return nil
}

// Stop cancels the worker and waits for an in-flight run to finish.
func (m *MaintenanceCoordinator) Stop() error {
	if m.cancel == nil {
		return nil
	}

	m.cancel()
	m.wg.Wait()
	m.log.Info("background maintenance stopped")

	return nil
}

func (m *MaintenanceCoordinator) worker(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RunMaintenance(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.log.Warnf("periodic maintenance failed: %v", err)
			}
		}
	}
}

// RunMaintenance vacuums the database and then checkpoints the WAL under the exclusive lock.
func (m *MaintenanceCoordinator) RunMaintenance(ctx context.Context) error {
	start := time.Now()

	m.opLock.Lock()
	defer m.opLock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	before, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Warnf("failed to get db size: %v", err)
	}

	var runErr error
	if err := Vacuum(m.db); err != nil {
		if strings.Contains(err.Error(), "database is locked") {
			err = fmt.Errorf("cannot vacuum, database is locked: %w", err)
		}
		runErr = err
	}

	// VACUUM rewrites pages through the WAL, so the checkpoint comes last.
	if err := m.walCheckpoint(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("WAL checkpoint failed: %w", err))
	}

	after, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Warnf("failed to get db size: %v", err)
	}

	elapsed := time.Since(start)
	maintenanceFinished(elapsed, runErr)
	dbSizeLog(after)

	m.statsLock.Lock()
	m.stats.LastRun = time.Now().UTC()
	m.stats.Runs++
	m.stats.LastError = runErr
	m.statsLock.Unlock()

	if runErr != nil {
		m.log.Warnf("maintenance finished with errors in %v: %v", elapsed, runErr)
		return runErr
	}

	if before > after {
		m.log.Infof("maintenance finished in %v, reclaimed %d MB", elapsed, bytesToMB(uint64(before-after)))
	} else {
		m.log.Infof("maintenance finished in %v", elapsed)
	}

	return nil
}

func (m *MaintenanceCoordinator) walCheckpoint() error {
	var mode string
	if err := m.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("failed to read journal mode: %w", err)
	}

	if !strings.EqualFold(mode, "wal") {
		m.log.Debugf("journal mode is %s, skipping WAL checkpoint", mode)
		return nil
	}

	var busy, logFrames, checkpointed int
	query := fmt.Sprintf("PRAGMA wal_checkpoint(%s)", m.config.WALCheckpointMode)
	if err := m.db.QueryRow(query).Scan(&busy, &logFrames, &checkpointed); err != nil {
		return err
	}

	walCheckpointInc(strings.ToLower(m.config.WALCheckpointMode))
	m.log.Debugw("WAL checkpoint complete",
		"mode", m.config.WALCheckpointMode,
		"busy", busy,
		"logFrames", logFrames,
		"checkpointed", checkpointed)

	if busy > 0 {
		m.log.Warnf("WAL checkpoint left %d busy pages", busy)
	}

	return nil
}

// AcquireOperationLock takes the shared side of the maintenance lock.
func (m *MaintenanceCoordinator) AcquireOperationLock() func() {
	m.opLock.RLock()
	return m.opLock.RUnlock
}

func (m *MaintenanceCoordinator) Stats() MaintenanceStats {
	m.statsLock.Lock()
	defer m.statsLock.Unlock()
	return m.stats
}
