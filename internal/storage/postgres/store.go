// Package postgres stores entities as JSONB documents keyed by (entity_type, id).
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/scrub-finance/scrub-indexer/internal/common"
	"github.com/scrub-finance/scrub-indexer/internal/db"
	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	loadQuery   = `SELECT data FROM entities WHERE entity_type = $1 AND id = $2`
	upsertQuery = `INSERT INTO entities (entity_type, id, data) VALUES ($1, $2, $3)
ON CONFLICT (entity_type, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	removeQuery = `DELETE FROM entities WHERE entity_type = $1 AND id = $2`
)

var _ store.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New connects the pool and applies the schema.
func New(ctx context.Context, cfg *config.PostgresConfig, log *logger.Logger) (*Store, error) {
	log = log.WithComponent(common.ComponentStore)

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := migrate(log, pool); err != nil {
		pool.Close()
		return nil, err
	}

	log.Infow("postgres store ready", "host", poolCfg.ConnConfig.Host, "database", poolCfg.ConnConfig.Database)

	return &Store{pool: pool, log: log}, nil
}

func migrate(log *logger.Logger, pool *pgxpool.Pool) error {
	migrations, err := db.LoadMigrations(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	return db.RunMigrations(log, sqlDB, db.DialectPostgres, migrations)
}

func (s *Store) Load(ctx context.Context, id string, dst store.Entity) (bool, error) {
	return load(ctx, s.pool, id, dst)
}

func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &tx{tx: pgTx}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func load(ctx context.Context, q querier, id string, dst store.Entity) (bool, error) {
	var doc []byte
	err := q.QueryRow(ctx, loadQuery, dst.EntityType(), id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s %s: %w", dst.EntityType(), id, err)
	}

	if err := json.Unmarshal(doc, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s %s: %w", dst.EntityType(), id, err)
	}

	return true, nil
}

type tx struct {
	tx pgx.Tx
}

func (t *tx) Load(ctx context.Context, id string, dst store.Entity) (bool, error) {
	return load(ctx, t.tx, id, dst)
}

func (t *tx) Save(ctx context.Context, e store.Entity) error {
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", e.EntityType(), e.EntityID(), err)
	}

	if _, err := t.tx.Exec(ctx, upsertQuery, e.EntityType(), e.EntityID(), doc); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", e.EntityType(), e.EntityID(), err)
	}

	return nil
}

func (t *tx) Remove(ctx context.Context, entityType, id string) error {
	if _, err := t.tx.Exec(ctx, removeQuery, entityType, id); err != nil {
		return fmt.Errorf("failed to remove %s %s: %w", entityType, id, err)
	}
	return nil
}

func (t *tx) Commit() error {
	return t.tx.Commit(context.Background())
}

// Rollback is a no-op after Commit.
func (t *tx) Rollback() error {
	err := t.tx.Rollback(context.Background())
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
