package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/internal/storage/storetest"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
	"github.com/scrub-finance/scrub-indexer/pkg/store"
)

const dsnEnv = "SCRUB_INDEXER_TEST_POSTGRES_DSN"

func TestStore(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		cfg := &config.PostgresConfig{DSN: dsn}
		cfg.ApplyDefaults()

		s, err := New(t.Context(), cfg, logger.NewNopLogger())
		require.NoError(t, err)

		_, err = s.pool.Exec(context.Background(), "TRUNCATE entities")
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, s.Close()) })

		return s
	})
}

func TestNew_InvalidDSN(t *testing.T) {
	_, err := New(t.Context(), &config.PostgresConfig{DSN: "postgres://%zz"}, logger.NewNopLogger())
	require.ErrorContains(t, err, "invalid postgres dsn")
}
