package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/weave-lang/weave/internal/companion"
	"github.com/weave-lang/weave/internal/weaver/contract"
)

// FileName is the configuration file looked up in the working directory
const FileName = "weave.yml"

// EnvPrefix prefixes every environment override, e.g. WEAVE_COMPANION_ADDR
const EnvPrefix = "WEAVE"

// Config represents the weave configuration
type Config struct {
	Companion CompanionConfig `mapstructure:"companion"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Gen       GenConfig       `mapstructure:"gen"`
	Log       LogConfig       `mapstructure:"log"`
}

// CompanionConfig represents the registry companion configuration
type CompanionConfig struct {
	Addr      string        `mapstructure:"addr"`
	Timeout   time.Duration `mapstructure:"timeout"` // zero blocks
	AdminAddr string        `mapstructure:"admin_addr"`
	Autostart bool          `mapstructure:"autostart"`
	Store     StoreConfig   `mapstructure:"store"`
}

// StoreConfig represents the registry storage backend
type StoreConfig struct {
	Backend string      `mapstructure:"backend"`
	Prefix  string      `mapstructure:"prefix"`
	Redis   RedisConfig `mapstructure:"redis"`
	SQL     SQLConfig   `mapstructure:"sql"`
}

// RedisConfig represents the redis backend settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SQLConfig represents the sql backend settings
type SQLConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ContractsConfig represents contract generation settings
type ContractsConfig struct {
	Override string `mapstructure:"override"`
}

// GenConfig represents weaving settings
type GenConfig struct {
	OutDir      string `mapstructure:"out_dir"`
	Concurrency int    `mapstructure:"concurrency"`
}

// LogConfig represents logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads the configuration from path, or from weave.yml / weave.yaml
// in the working directory when path is empty. WEAVE_* environment
// variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("weave")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	store := companion.DefaultStoreConfig()

	v.SetDefault("companion.addr", companion.DefaultAddr)
	v.SetDefault("companion.timeout", time.Duration(0))
	v.SetDefault("companion.admin_addr", "")
	v.SetDefault("companion.autostart", true)
	v.SetDefault("companion.store.backend", store.Backend)
	v.SetDefault("companion.store.prefix", store.Prefix)
	v.SetDefault("companion.store.redis.addr", store.Redis.Addr)
	v.SetDefault("companion.store.redis.password", "")
	v.SetDefault("companion.store.redis.db", store.Redis.DB)
	v.SetDefault("companion.store.sql.driver", store.SQL.Driver)
	v.SetDefault("companion.store.sql.dsn", store.SQL.DSN)
	v.SetDefault("contracts.override", "")
	v.SetDefault("gen.out_dir", ".weave")
	v.SetDefault("gen.concurrency", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// StoreConfig converts the store settings for companion.OpenStore
func (c *Config) StoreConfig() companion.StoreConfig {
	s := c.Companion.Store
	return companion.StoreConfig{
		Backend: s.Backend,
		Prefix:  s.Prefix,
		Redis: companion.RedisConfig{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
			Prefix:   s.Prefix,
		},
		SQL: companion.SQLConfig{Driver: s.SQL.Driver, DSN: s.SQL.DSN},
	}
}

// Override returns the parsed contracts.override setting
func (c *Config) Override() contract.Override {
	o, _ := contract.ParseOverride(c.Contracts.Override)
	return o
}

// GetProjectRoot finds the nearest directory holding weave.yml or go.mod
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range []string{FileName, "weave.yaml", "go.mod"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no %s or go.mod found)", FileName)
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := contract.ParseOverride(cfg.Contracts.Override); err != nil {
		return fmt.Errorf("contracts.override: %w", err)
	}

	switch cfg.Companion.Store.Backend {
	case "memory", "redis", "sql":
	default:
		return fmt.Errorf("companion.store.backend must be memory, redis or sql, got: %s", cfg.Companion.Store.Backend)
	}

	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got: %s", cfg.Log.Format)
	}

	if cfg.Companion.Timeout < 0 {
		return fmt.Errorf("companion.timeout must not be negative, got: %s", cfg.Companion.Timeout)
	}
	if cfg.Gen.Concurrency < 0 {
		return fmt.Errorf("gen.concurrency must not be negative, got: %d", cfg.Gen.Concurrency)
	}
	return nil
}
