package db

import (
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
	"github.com/stretchr/testify/require"

	"github.com/scrub-finance/scrub-indexer/internal/logger"
	"github.com/scrub-finance/scrub-indexer/pkg/config"
)

func openTestDB(t *testing.T, journal string) (*sql.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	cfg := config.DatabaseConfig{Path: dbPath, JournalMode: journal}
	cfg.ApplyDefaults()

	sqlDB, err := NewSQLiteDBFromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return sqlDB, dbPath
}

func TestVacuum_Modes(t *testing.T) {
	t.Parallel()

	for _, journal := range []string{"WAL", "TRUNCATE"} {
		t.Run(journal, func(t *testing.T) {
			t.Parallel()

			sqlDB, dbPath := openTestDB(t, journal)

			_, err := sqlDB.Exec(`CREATE TABLE filler (id INTEGER PRIMARY KEY, value TEXT);`)
			require.NoError(t, err)
			for i := range 2000 {
				_, err = sqlDB.Exec(`INSERT INTO filler (value) VALUES (?);`, fmt.Sprintf("value_%d", i))
				require.NoError(t, err)
			}
			_, err = sqlDB.Exec(`DELETE FROM filler;`)
			require.NoError(t, err)

			before, err := DBTotalSize(dbPath)
			require.NoError(t, err)

			require.NoError(t, Vacuum(sqlDB))

			after, err := DBTotalSize(dbPath)
			require.NoError(t, err)
			require.LessOrEqual(t, after, before)
		})
	}
}

func TestDBTotalSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string
		want  int64
	}{
		{
			name:  "main only",
			files: map[string]string{"": "main-db-content"},
			want:  int64(len("main-db-content")),
		},
		{
			name:  "with wal and shm",
			files: map[string]string{"": "main-db", "-wal": "wal-content", "-shm": "shm"},
			want:  int64(len("main-db") + len("wal-content") + len("shm")),
		},
		{
			name: "missing files",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mainPath := filepath.Join(t.TempDir(), "main.db")
			for suffix, content := range tt.files {
				require.NoError(t, os.WriteFile(mainPath+suffix, []byte(content), 0o600))
			}

			size, err := DBTotalSize(mainPath)
			require.NoError(t, err)
			require.Equal(t, tt.want, size)
		})
	}
}

type meddlerRow struct {
	ID      int64           `meddler:"id,pk"`
	Owner   common.Address  `meddler:"owner,address"`
	Spender *common.Address `meddler:"spender,address"`
	Tx      common.Hash     `meddler:"tx_hash,hash"`
	Amount  *big.Int        `meddler:"amount,bigint"`
	Missing *big.Int        `meddler:"missing,bigint"`
}

func TestMeddlers_RoundTrip(t *testing.T) {
	t.Parallel()

	sqlDB, _ := openTestDB(t, "WAL")
	_, err := sqlDB.Exec(`CREATE TABLE rows (
		id INTEGER PRIMARY KEY,
		owner TEXT NOT NULL,
		spender TEXT,
		tx_hash TEXT NOT NULL,
		amount TEXT NOT NULL,
		missing TEXT NOT NULL
	);`)
	require.NoError(t, err)

	huge, ok := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	require.True(t, ok)

	row := &meddlerRow{
		Owner:  common.HexToAddress("0xAbCdEf0000000000000000000000000000000001"),
		Tx:     common.HexToHash("0x01"),
		Amount: huge,
	}
	require.NoError(t, meddler.Insert(sqlDB, "rows", row))

	var stored string
	require.NoError(t, sqlDB.QueryRow(`SELECT owner FROM rows WHERE id = ?`, row.ID).Scan(&stored))
	require.Equal(t, "0xabcdef0000000000000000000000000000000001", stored)

	loaded := &meddlerRow{}
	require.NoError(t, meddler.Load(sqlDB, "rows", loaded, row.ID))
	require.Equal(t, row.Owner, loaded.Owner)
	require.Nil(t, loaded.Spender)
	require.Equal(t, row.Tx, loaded.Tx)
	require.Equal(t, 0, huge.Cmp(loaded.Amount))
	require.NotNil(t, loaded.Missing)
	require.Zero(t, loaded.Missing.Sign())
}

func TestRunMigrations(t *testing.T) {
	t.Parallel()

	sqlDB, _ := openTestDB(t, "WAL")
	migrations := []Migration{{
		ID: "001_things.sql",
		SQL: `-- +migrate Down
DROP TABLE IF EXISTS things;

-- +migrate Up
CREATE TABLE things (id TEXT PRIMARY KEY);`,
	}}

	require.NoError(t, RunMigrations(logger.NewNopLogger(), sqlDB, DialectSQLite, migrations))
	// applying twice is a no-op
	require.NoError(t, RunMigrations(logger.NewNopLogger(), sqlDB, DialectSQLite, migrations))

	_, err := sqlDB.Exec(`INSERT INTO things (id) VALUES ('a')`)
	require.NoError(t, err)

	err = RunMigrations(logger.NewNopLogger(), sqlDB, DialectSQLite, []Migration{{ID: "002_bad.sql", SQL: "CREATE TABLE x (id TEXT);"}})
	require.ErrorContains(t, err, "missing '-- +migrate Up' separator")
}

func TestLoadMigrations(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"m/002_b.sql": {Data: []byte("-- +migrate Up\nSELECT 2;")},
		"m/001_a.sql": {Data: []byte("-- +migrate Up\nSELECT 1;")},
		"m/README.md": {Data: []byte("ignored")},
		"m/sub/x.sql": {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	require.Equal(t, "001_a.sql", migrations[0].ID)
	require.Equal(t, "002_b.sql", migrations[1].ID)
}
