package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	customerrors "github.com/axellelanca/linkshortener/internal/errors"
	"github.com/spf13/viper"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML keys to Go struct fields.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Shortener ShortenerConfig `mapstructure:"shortener"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	BaseURL         string        `mapstructure:"base_url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig selects the SQL driver used by the gorm store.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite or postgres
	Name         string `mapstructure:"name"`   // SQLite database file name
	DSN          string `mapstructure:"dsn"`    // PostgreSQL connection string
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// StorageConfig selects the link store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // sql or redis
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ShortenerConfig tunes code allocation.
type ShortenerConfig struct {
	CodeLength   int           `mapstructure:"code_length"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
}

// AnalyticsConfig sizes the asynchronous click pipeline.
type AnalyticsConfig struct {
	BufferSize       int           `mapstructure:"buffer_size"`
	WorkerCount      int           `mapstructure:"worker_count"`
	IncrementTimeout time.Duration `mapstructure:"increment_timeout"`
}

type MonitorConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"` // 0 disables the periodic health check
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BackendSQL   = "sql"
	BackendRedis = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.name", "url_shortener.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 1)

	v.SetDefault("storage.backend", BackendSQL)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "linkshortener:")

	v.SetDefault("shortener.code_length", 6)
	v.SetDefault("shortener.max_attempts", 10)
	v.SetDefault("shortener.store_timeout", 3*time.Second)

	v.SetDefault("analytics.buffer_size", 1000)
	v.SetDefault("analytics.worker_count", 5)
	v.SetDefault("analytics.increment_timeout", 2*time.Second)

	v.SetDefault("monitor.interval_minutes", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig loads the application configuration using Viper.
// When configFile is empty it looks for ./configs/config.yaml and falls back to
// defaults if that file does not exist. Environment variables override every key,
// e.g. "server.port" becomes SERVER_PORT.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath("./configs")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit file must exist; the implicit one is optional.
		if configFile != "" || !errors.As(err, &notFound) {
			path := configFile
			if path == "" {
				path = "./configs/config.yaml"
			}
			return nil, customerrors.ErrConfigLoad{Path: path, Reason: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Database.Driver == DriverPostgres && c.Storage.Backend == BackendSQL && c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required for postgres"))
	}
	switch c.Storage.Backend {
	case BackendSQL, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend))
	}
	if c.Shortener.CodeLength < 6 || c.Shortener.CodeLength > 8 {
		errs = append(errs, fmt.Errorf("shortener.code_length must be between 6 and 8, got %d", c.Shortener.CodeLength))
	}
	if c.Shortener.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("shortener.max_attempts must be at least 1, got %d", c.Shortener.MaxAttempts))
	}
	if c.Analytics.WorkerCount < 0 || c.Analytics.BufferSize < 0 {
		errs = append(errs, errors.New("analytics.worker_count and analytics.buffer_size must not be negative"))
	}
	if c.Monitor.IntervalMinutes < 0 {
		errs = append(errs, errors.New("monitor.interval_minutes must not be negative"))
	}

	return errors.Join(errs...)
}
