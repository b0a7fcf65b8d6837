package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Accounts    AccountsConfig    `yaml:"accounts" mapstructure:"accounts"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Intake      IntakeConfig      `yaml:"intake" mapstructure:"intake"`
	Consolidate ConsolidateConfig `yaml:"consolidate" mapstructure:"consolidate"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int    `yaml:"min_conns" mapstructure:"min_conns"`
}

// AccountsConfig selects where intake account settings come from. With the
// sqlite driver accounts live in a YAML registry file; with postgres they are
// read from the accounts table unless a registry path is set explicitly.
type AccountsConfig struct {
	RegistryPath string `yaml:"registry_path" mapstructure:"registry_path"`
}

// ServerConfig configures the webhook and CRM API server.
type ServerConfig struct {
	Port         int `yaml:"port" mapstructure:"port"`
	ReadTimeout  int `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeout int `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`

	// RatePerMinute is the default webhook rate cap for accounts that do
	// not set their own.
	RatePerMinute int `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`

	// MaxBodyBytes caps inbound webhook body size.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// IntakeConfig configures the ingestion handler.
type IntakeConfig struct {
	StorageTimeoutSecs int `yaml:"storage_timeout_secs" mapstructure:"storage_timeout_secs"`
}

// ConsolidateConfig configures the consolidation engine.
type ConsolidateConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`

	// TerminalStatuses are the canonical statuses that block automatic
	// merges and route the event to conflict review.
	TerminalStatuses []string `yaml:"terminal_statuses" mapstructure:"terminal_statuses"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the fields required for the given run mode ("serve",
// "migrate", "consolidate"). All problems are reported at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	checkStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres driver")
			}
		case "sqlite":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the sqlite driver")
			}
			if c.Accounts.RegistryPath == "" {
				problems = append(problems, "accounts.registry_path is required for the sqlite driver")
			}
		default:
			problems = append(problems, fmt.Sprintf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
		}
	}

	switch mode {
	case "serve":
		checkStore()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.RatePerMinute <= 0 {
			problems = append(problems, "server.rate_per_minute must be > 0")
		}
	case "migrate":
		checkStore()
	case "consolidate":
		checkStore()
		if c.Consolidate.Concurrency < 1 || c.Consolidate.Concurrency > 50 {
			problems = append(problems, "consolidate.concurrency must be between 1 and 50")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 30)
	v.SetDefault("server.rate_per_minute", 120)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("intake.storage_timeout_secs", 10)
	v.SetDefault("consolidate.concurrency", 4)
	v.SetDefault("consolidate.terminal_statuses", []string{"won", "lost"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
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
