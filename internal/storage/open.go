// Package storage selects the entity store backend named in the configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/internal/storage/memory"
	"github.com/scrub-finance/scrub-indexer/internal/storage/postgres"
	"github.com/scrub-finance/scrub-indexer/internal/storage/sqlite"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

// Open returns the configured backend. The caller closes it.
func Open(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreDriverSQLite:
		return sqlite.New(ctx, cfg, log)
	case config.StoreDriverPostgres:
		return postgres.New(ctx, cfg.Postgres, log)
	case config.StoreDriverMemory:
		log.Warn("using the in-memory store, projected entities are lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
