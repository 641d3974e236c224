// Package config reads the command line and PHOTOSEARCH_* environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"photosearch/signalhandler"
	"photosearch/unsplash"
	"photosearch/utils"

	"github.com/jamiealquiza/envy"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix of environment variables mirroring the global flags
const EnvPrefix = "PHOTOSEARCH"

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Errors
var (
	ErrNoCommand     = errors.New("no command given")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds the global settings shared by all commands
type Config struct {
	Database string
	LogLevel zapcore.Level
	LogFile  string
	Listen   string

	UnsplashURL      string
	UnsplashClientID string

	Cache              string
	CacheRedisAddress  string
	CacheRedisPoolSize int
	CacheTTL           time.Duration

	Workers int

	// Command is the first positional argument, Args the ones after it
	Command string
	Args    []string
}

// Define registers the global flags on fs and returns the config they fill
func Define(fs *flag.FlagSet) *Config {
	cfg := &Config{LogLevel: zapcore.InfoLevel}

	// Global
	fs.StringVar(&cfg.Database, "database", utils.GetDefaultDatabasePath(), "path to the sqlite database")
	fs.Var(&cfg.LogLevel, "log-level", "log level (debug, info, warn, error, dpanic, panic, fatal)")
	fs.StringVar(&cfg.LogFile, "logfile", "", "also write logs to this file")
	fs.StringVar(&cfg.Listen, "listen", ":8080", "listen address for the serve command")
	fs.IntVar(&cfg.Workers, "workers", 0, "number of concurrent workers for batch processing (0 picks one from the CPU count)")

	// Unsplash
	fs.StringVar(&cfg.UnsplashURL, "unsplash-url", unsplash.DefaultBaseURL, "unsplash api url")
	fs.StringVar(&cfg.UnsplashClientID, "unsplash-client-id", "", "unsplash api access key")

	// Cache
	fs.StringVar(&cfg.Cache, "cache", CacheMemory, "which cache backend to use for search results (none, memory, redis)")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", time.Hour, "how long search results stay in the cache")

	// Cache - Redis
	fs.StringVar(&cfg.CacheRedisAddress, "cache-redis-address", "redis://127.0.0.1:6379", "redis address")
	fs.IntVar(&cfg.CacheRedisPoolSize, "cache-redis-pool-size", 10, "redis pool size")

	return cfg
}

// Parse reads environment variables and the process command line into a new Config.
// It must only be called once per process.
func Parse() (*Config, error) {
	cfg := Define(flag.CommandLine)

	// Parse environment variables
	envy.Parse(EnvPrefix)

	// Parse commandline flags
	flag.Parse()

	return cfg, cfg.finish(flag.Args())
}

// ParseArgs parses args into a config using a private flag set, without looking at the environment
func ParseArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("photosearch", flag.ContinueOnError)
	cfg := Define(fs)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return cfg, cfg.finish(fs.Args())
}

func (c *Config) finish(args []string) error {
	switch c.Cache {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache)
	}

	if c.CacheRedisPoolSize < 1 {
		return fmt.Errorf("%w: cache-redis-pool-size must be positive", ErrInvalidConfig)
	}

	if c.Workers < 1 {
		c.Workers = signalhandler.GetOptimalProcs()
	}

	if len(args) == 0 {
		return ErrNoCommand
	}
	c.Command = args[0]
	c.Args = args[1:]

	return nil
}
