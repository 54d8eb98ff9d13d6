package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scrub-finance/scrub-indexer/pkg/config"
)

func TestLoadFromFile_Examples(t *testing.T) {
	tests := []struct {
		name string
		path string
		load func(string) (*config.Config, error)
	}{
		{name: "yaml", path: "../../config.example.yaml", load: LoadFromYAML},
		{name: "json", path: "../../config.example.json", load: LoadFromJSON},
		{name: "toml", path: "../../config.example.toml", load: LoadFromTOML},
		{name: "auto yaml", path: "../../config.example.yaml", load: LoadFromFile},
		{name: "auto toml", path: "../../config.example.toml", load: LoadFromFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.load(tt.path)
			require.NoError(t, err)
			validateExampleConfig(t, cfg)
		})
	}
}

func validateExampleConfig(t *testing.T, cfg *config.Config) {
	t.Helper()

	require.Equal(t, "https://rpc.example.org", cfg.Source.RPCURL)
	require.Equal(t, uint64(2000), cfg.Source.ChunkSize)
	require.Equal(t, 6*time.Second, cfg.Source.PollInterval.Duration)
	require.Equal(t, 5, cfg.Source.Retry.MaxAttempts)

	require.Equal(t, config.StoreDriverSQLite, cfg.Store.Driver)
	require.Equal(t, "./data/scrub.db", cfg.Store.DB.Path)
	require.Equal(t, 5000, cfg.Store.DB.BusyTimeout)
	require.NotNil(t, cfg.Store.Maintenance)
	require.Equal(t, 30*time.Minute, cfg.Store.Maintenance.CheckInterval.Duration)

	require.Len(t, cfg.DataSources, 6)
	require.Equal(t, "scrub-point", cfg.DataSources[2].Kind)
	require.Equal(t, uint64(19341848), cfg.DataSources[2].UpgradeBlock)
	require.NotNil(t, cfg.DataSources[0].Vault)
	require.Equal(t, uint64(6), cfg.DataSources[0].Vault.Decimals)

	tpl, ok := cfg.Template("auto-compounder")
	require.True(t, ok)
	require.Equal(t, uint64(18500000), tpl.UpgradeBlock)

	require.Equal(t, "debug", cfg.Logging.GetComponentLevel("scrub-point"))
	require.Equal(t, "info", cfg.Logging.GetComponentLevel("store"))
	require.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o600))

	_, err := LoadFromFile(path)
	require.ErrorContains(t, err, "unsupported config file format")
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"RPC_URL", "http://localhost:8545")
	t.Setenv(EnvPrefix+"DB_PATH", "/tmp/override.db")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "debug")

	cfg, err := LoadFromFile("../../config.example.yaml")
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8545", cfg.Source.RPCURL)
	require.Equal(t, "/tmp/override.db", cfg.Store.DB.Path)
	require.Equal(t, "debug", cfg.Logging.GetDefaultLevel())
}

func TestConfigDefaults(t *testing.T) {
	cfg := &config.Config{
		Source:      config.SourceConfig{RPCURL: "http://node"},
		Store:       config.StoreConfig{DB: config.DatabaseConfig{Path: "x.db"}},
		DataSources: []config.DataSourceConfig{validSource("vault")},
	}

	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	require.Equal(t, uint64(5000), cfg.Source.ChunkSize)
	require.Equal(t, "finalized", cfg.Source.Finality)
	require.Equal(t, 5*time.Second, cfg.Source.PollInterval.Duration)
	require.Equal(t, time.Second, cfg.Source.Retry.InitialBackoff.Duration)
	require.Equal(t, config.StoreDriverSQLite, cfg.Store.Driver)
	require.Equal(t, "WAL", cfg.Store.DB.JournalMode)
	require.Equal(t, "info", cfg.Logging.DefaultLevel)
}

func validSource(name string) config.DataSourceConfig {
	return config.DataSourceConfig{
		Name:    name,
		Kind:    "scrub-vault",
		Address: "0x5aBe7E4C5A1DA2C5b7A7f1b3cC2a5e8E8B1f4C11",
	}
}

func TestConfigValidation(t *testing.T) {
	base := func() *config.Config {
		cfg := &config.Config{
			Source:      config.SourceConfig{RPCURL: "http://node"},
			Store:       config.StoreConfig{DB: config.DatabaseConfig{Path: "x.db"}},
			DataSources: []config.DataSourceConfig{validSource("vault")},
		}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*config.Config) {},
		},
		{
			name:    "missing rpc url",
			mutate:  func(c *config.Config) { c.Source.RPCURL = "" },
			wantErr: "source.rpc_url is required",
		},
		{
			name:    "bad finality",
			mutate:  func(c *config.Config) { c.Source.Finality = "soon" },
			wantErr: "source.finality",
		},
		{
			name:    "missing sqlite path",
			mutate:  func(c *config.Config) { c.Store.DB.Path = "" },
			wantErr: "store.db.path is required",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *config.Config) { c.Store.Driver = config.StoreDriverPostgres },
			wantErr: "store.postgres.dsn is required",
		},
		{
			name:   "memory store needs nothing",
			mutate: func(c *config.Config) { c.Store.Driver = config.StoreDriverMemory; c.Store.DB.Path = "" },
		},
		{
			name:    "no data sources",
			mutate:  func(c *config.Config) { c.DataSources = nil },
			wantErr: "at least one data source",
		},
		{
			name:    "missing address",
			mutate:  func(c *config.Config) { c.DataSources[0].Address = "" },
			wantErr: "data_sources[0] (vault): address is required",
		},
		{
			name:    "invalid address",
			mutate:  func(c *config.Config) { c.DataSources[0].Address = "0x1234" },
			wantErr: "invalid address",
		},
		{
			name: "duplicate names across templates",
			mutate: func(c *config.Config) {
				c.Templates = []config.DataSourceConfig{{Name: "Vault", Kind: "hover"}}
			},
			wantErr: `duplicate data source name "Vault"`,
		},
		{
			name: "template with address",
			mutate: func(c *config.Config) {
				c.Templates = []config.DataSourceConfig{validSource("tpl")}
			},
			wantErr: "templates must not set an address",
		},
		{
			name: "component level for data source",
			mutate: func(c *config.Config) {
				c.Logging.ComponentLevels = map[string]string{"vault": "debug", "projector": "warn"}
			},
		},
		{
			name: "unknown component",
			mutate: func(c *config.Config) {
				c.Logging.ComponentLevels = map[string]string{"downloader": "debug"}
			},
			wantErr: "unknown component 'downloader'",
		},
		{
			name:    "bad wal mode",
			mutate:  func(c *config.Config) { c.Store.Maintenance = &config.MaintenanceConfig{WALCheckpointMode: "LAZY"} },
			wantErr: "store.maintenance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateKinds(t *testing.T) {
	cfg := &config.Config{
		DataSources: []config.DataSourceConfig{{Name: "cave", Kind: "cavee"}},
	}

	err := cfg.ValidateKinds(func(kind string) bool { return kind == "cave" })
	require.EqualError(t, err, `data_sources[0] (cave): unknown kind "cavee"`)
}
