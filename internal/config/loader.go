package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	pkgconfig "github.com/scrub-finance/scrub-indexer/pkg/config"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SCRUB_INDEXER_"

// envOverrides are the settings that can be replaced from the environment,
// typically secrets or per-host values kept out of the config file.
type envOverrides struct {
	RPCURL         string `env:"RPC_URL"`
	StoreDriver    string `env:"STORE_DRIVER"`
	DBPath         string `env:"DB_PATH"`
	PostgresDSN    string `env:"POSTGRES_DSN"`
	LogLevel       string `env:"LOG_LEVEL"`
	MetricsAddress string `env:"METRICS_ADDRESS"`
}

// LoadFromFile loads configuration from a file, auto-detecting the format by extension.
// Supported formats: .yaml, .yml, .json, .toml
func LoadFromFile(path string) (*pkgconfig.Config, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		return LoadFromYAML(path)
	case ".json":
		return LoadFromJSON(path)
	case ".toml":
		return LoadFromTOML(path)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json, .toml)", ext)
	}
}

// LoadFromYAML loads configuration from a YAML file.
func LoadFromYAML(path string) (*pkgconfig.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg pkgconfig.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return processConfig(&cfg)
}

// LoadFromJSON loads configuration from a JSON file.
func LoadFromJSON(path string) (*pkgconfig.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg pkgconfig.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}

	return processConfig(&cfg)
}

// LoadFromTOML loads configuration from a TOML file.
func LoadFromTOML(path string) (*pkgconfig.Config, error) {
	var cfg pkgconfig.Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	return processConfig(&cfg)
}

// applyEnv overlays SCRUB_INDEXER_* variables on the decoded file.
func applyEnv(cfg *pkgconfig.Config) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	if o.RPCURL != "" {
		cfg.Source.RPCURL = o.RPCURL
	}
	if o.StoreDriver != "" {
		cfg.Store.Driver = o.StoreDriver
	}
	if o.DBPath != "" {
		cfg.Store.DB.Path = o.DBPath
	}
	if o.PostgresDSN != "" {
		if cfg.Store.Postgres == nil {
			cfg.Store.Postgres = &pkgconfig.PostgresConfig{}
		}
		cfg.Store.Postgres.DSN = o.PostgresDSN
	}
	if o.LogLevel != "" {
		if cfg.Logging == nil {
			cfg.Logging = &pkgconfig.LoggingConfig{}
		}
		cfg.Logging.DefaultLevel = o.LogLevel
	}
	if o.MetricsAddress != "" {
		if cfg.Metrics == nil {
			cfg.Metrics = &pkgconfig.MetricsConfig{Enabled: true}
		}
		cfg.Metrics.ListenAddress = o.MetricsAddress
	}

	return nil
}

// processConfig applies environment overrides and defaults, then validates the configuration.
func processConfig(cfg *pkgconfig.Config) (*pkgconfig.Config, error) {
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
