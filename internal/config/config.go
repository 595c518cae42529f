// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Dedup    DedupConfig    `yaml:"dedup" mapstructure:"dedup"`
	Resolve  ResolveConfig  `yaml:"resolve" mapstructure:"resolve"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the facility and relationship stores.
type StoreConfig struct {
	// FacilityDir is the root of the facility record file store.
	FacilityDir string `yaml:"facility_dir" mapstructure:"facility_dir"`

	// Driver selects the relationship store backend: sqlite or postgres.
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RegistryConfig configures the canonical-company registry.
type RegistryConfig struct {
	// Mode selects the registry backend: snapshot (offline YAML) or http.
	Mode         string  `yaml:"mode" mapstructure:"mode"`
	SnapshotPath string  `yaml:"snapshot_path" mapstructure:"snapshot_path"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey       string  `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts  int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// DedupConfig configures the deduplication engine.
type DedupConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ResolveConfig configures the mention resolution engine.
type ResolveConfig struct {
	Profile string `yaml:"profile" mapstructure:"profile"`
	Workers int    `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the review API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and FACILITY_* environment
// variables, with defaults for every knob.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FACILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.facility_dir", "data/facilities")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/relationships.db")
	v.SetDefault("registry.mode", "snapshot")
	v.SetDefault("registry.snapshot_path", "data/registry.yaml")
	v.SetDefault("registry.timeout_secs", 10)
	v.SetDefault("registry.max_attempts", 2)
	v.SetDefault("registry.rate_limit", 5.0)
	v.SetDefault("dedup.workers", 4)
	v.SetDefault("resolve.profile", "moderate")
	v.SetDefault("resolve.workers", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
