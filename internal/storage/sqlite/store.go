// Package sqlite persists entities into typed sqlite tables, one per entity type.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/russross/meddler"

	"github.com/scrub-finance/scrub-indexer/internal/common"
	"github.com/scrub-finance/scrub-indexer/internal/db"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ store.Store = (*Store)(nil)

// Store is the sqlite entity backend.
type Store struct {
	db          *sql.DB
	maintenance db.Maintenance
	log         *logger.Logger
}

// New opens the database, applies the schema and starts background maintenance.
func New(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (*Store, error) {
	log = log.WithComponent(common.ComponentStore)

	sqlDB, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return nil, err
	}

	migrations, err := db.LoadMigrations(migrationsFS, "migrations")
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	if err := db.RunMigrations(log, sqlDB, db.DialectSQLite, migrations); err != nil {
		sqlDB.Close()
		return nil, err
	}

	maintenance := db.NewMaintenanceCoordinator(cfg.DB.Path, sqlDB, cfg.Maintenance, log)
	if err := maintenance.Start(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to start maintenance: %w", err)
	}

	log.Infow("sqlite store ready", "path", cfg.DB.Path, "journalMode", cfg.DB.JournalMode)

	return &Store{db: sqlDB, maintenance: maintenance, log: log}, nil
}

// Load reads a committed entity.
func (s *Store) Load(ctx context.Context, id string, dst store.Entity) (bool, error) {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	return load(ctx, s.db, id, dst)
}

// Begin opens an immediate transaction. Maintenance waits until it is committed or rolled back.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	unlock := s.maintenance.AcquireOperationLock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &tx{tx: sqlTx, unlock: unlock}, nil
}

// Close stops maintenance and closes the database.
func (s *Store) Close() error {
	return errors.Join(s.maintenance.Stop(), s.db.Close())
}

type tx struct {
	tx     *sql.Tx
	unlock func()
	once   sync.Once
}

func (t *tx) Load(ctx context.Context, id string, dst store.Entity) (bool, error) {
	return load(ctx, t.tx, id, dst)
}

func (t *tx) Save(ctx context.Context, e store.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	columns, err := meddler.ColumnsQuoted(e, true)
	if err != nil {
		return fmt.Errorf("failed to map %s columns: %w", e.EntityType(), err)
	}

	placeholders, err := meddler.PlaceholdersString(e, true)
	if err != nil {
		return fmt.Errorf("failed to map %s placeholders: %w", e.EntityType(), err)
	}

	values, err := meddler.Values(e, true)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", e.EntityType(), e.EntityID(), err)
	}

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		quote(e.EntityType()), columns, placeholders)
	if _, err := t.tx.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", e.EntityType(), e.EntityID(), err)
	}

	return nil
}

func (t *tx) Remove(ctx context.Context, entityType, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", quote(entityType))
	if _, err := t.tx.Exec(query, id); err != nil {
		return fmt.Errorf("failed to remove %s %s: %w", entityType, id, err)
	}

	return nil
}

func (t *tx) Commit() error {
	defer t.release()
	return t.tx.Commit()
}

// Rollback is a no-op after Commit.
func (t *tx) Rollback() error {
	defer t.release()

	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (t *tx) release() {
	t.once.Do(t.unlock)
}

func load(ctx context.Context, q meddler.DB, id string, dst store.Entity) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ?", quote(dst.EntityType()))
	err := meddler.QueryRow(q, dst, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s %s: %w", dst.EntityType(), id, err)
	}

	return true, nil
}

func quote(table string) string {
	return `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
}
