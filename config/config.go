/*
Package config loads server settings with viper.

SOURCES (later wins):
  1. Defaults below
  2. Optional YAML file passed to Load
  3. Environment variables prefixed FLYTAU_, dots replaced by
     underscores (FLYTAU_SERVER_PORT, FLYTAU_DATABASE_DRIVER, ...)

EXAMPLE FILE:
  server:
    port: 8080
  database:
    driver: postgres
    url: postgres://flytau@localhost/flytau
  scheduler:
    interval: 5m
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Seed      SeedConfig      `mapstructure:"seed"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func (s ServerConfig) Addr() string { return fmt.Sprintf(":%d", s.Port) }

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"` // sqlite file
	URL    string `mapstructure:"url"`  // postgres connection string
}

type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type EngineConfig struct {
	OpTimeout   time.Duration `mapstructure:"op_timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type SeedConfig struct {
	File string `mapstructure:"file"` // fleet document loaded at startup
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "flytau.db")
	v.SetDefault("database.url", "")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", "5m")
	v.SetDefault("engine.op_timeout", "5s")
	v.SetDefault("engine.max_attempts", 3)
	v.SetDefault("seed.file", "")
}

// Load reads configuration from defaults, the optional file at path and
// the environment, then validates it.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FLYTAU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}

	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler.interval must be positive"))
	}
	if c.Engine.OpTimeout <= 0 {
		errs = append(errs, errors.New("engine.op_timeout must be positive"))
	}
	if c.Engine.MaxAttempts < 1 {
		errs = append(errs, errors.New("engine.max_attempts must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
