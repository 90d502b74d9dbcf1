package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// Config holds the settings for the nodeflow daemon
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Engine
		WorkerPoolSize int

		// Archiving
		ArchiveDriver string
		SQLitePath    string
		Redis         RedisConfig

		ShutdownTimeout time.Duration
	}

	// RedisConfig holds the connection settings for the Redis archive
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
)

// Archive drivers accepted by Validate
const (
	ArchiveNone   = ""
	ArchiveSQLite = "sqlite"
	ArchiveRedis  = "redis"
)

const (
	DefaultAPIHost         = "0.0.0.0"
	DefaultAPIPort         = 8080
	DefaultWorkerPoolSize  = 4
	DefaultSQLitePath      = "nodeflow.db"
	DefaultRedisAddr       = "localhost:6379"
	DefaultRedisDB         = 0
	DefaultRedisPrefix     = "nodeflow:"
	DefaultShutdownTimeout = 10 * time.Second

	MaxTCPPort        = 65535
	MaxWorkerPoolSize = 1024
	MaxRedisDB        = 15
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrInvalidWorkerPool    = errors.New("worker pool size must be positive")
	ErrUnknownArchiveDriver = errors.New("unknown archive driver")
	ErrMissingSQLitePath    = errors.New("sqlite archive requires a path")
	ErrMissingRedisAddr     = errors.New("redis archive requires an address")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// server, engine, and archive settings
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:        DefaultAPIHost,
		APIPort:        DefaultAPIPort,
		LogLevel:       "info",
		WorkerPoolSize: DefaultWorkerPoolSize,
		ArchiveDriver:  ArchiveNone,
		SQLitePath:     DefaultSQLitePath,
		Redis: RedisConfig{
			Addr:     DefaultRedisAddr,
			Password: "",
			DB:       DefaultRedisDB,
			Prefix:   DefaultRedisPrefix,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if driver := os.Getenv("ARCHIVE_DRIVER"); driver != "" {
		c.ArchiveDriver = driver
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		c.SQLitePath = path
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		c.Redis.Prefix = prefix
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"WORKER_POOL_SIZE", &c.WorkerPoolSize, 0, MaxWorkerPoolSize,
	); err != nil {
		return err
	}
	if err := loadEnvInt("REDIS_DB", &c.Redis.DB, -1, MaxRedisDB); err != nil {
		return err
	}

	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %q", timeout)
		}
		c.ShutdownTimeout = d
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.WorkerPoolSize <= 0 {
		return ErrInvalidWorkerPool
	}

	switch c.ArchiveDriver {
	case ArchiveNone:
	case ArchiveSQLite:
		if c.SQLitePath == "" {
			return ErrMissingSQLitePath
		}
	case ArchiveRedis:
		if c.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownArchiveDriver, c.ArchiveDriver)
	}

	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
