package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"photosearch/cache"
	"photosearch/cache/memory"
	"photosearch/cache/redis"
	"photosearch/config"
	"photosearch/database"
	"photosearch/logging"
	"photosearch/unsplash"
	"photosearch/utils"

	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		if !errors.Is(err, config.ErrNoCommand) {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		}
		utils.PrintUsage(os.Stderr, flag.CommandLine)
		os.Exit(1)
	}

	// Only the server keeps stdout for logs; other commands print their results there
	if cfg.Command != "serve" {
		logging.SetOutput(logging.OutputStderr)
	}
	logging.SetLevel(cfg.LogLevel)
	if cfg.LogFile != "" {
		if err := logging.SetupLogger(cfg.LogFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to setup logging: %v\n", err)
		}
	}
	defer logging.CloseLogger()

	// Set GOMAXPROCS
	maxprocs.Set(maxprocs.Logger(logging.Logger().Debugf))

	if err := run(cfg); err != nil {
		logging.LogError("%s failed: %v", cfg.Command, err)
		logging.CloseLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	switch cfg.Command {
	case "process":
		return handleProcessCommand(cfg)
	case "batch":
		return handleBatchCommand(cfg)
	case "search":
		return handleSearchCommand(cfg)
	case "favorites":
		return handleFavoritesCommand(cfg)
	case "routines":
		return handleRoutinesCommand(cfg)
	case "info":
		return handleInfoCommand(cfg)
	case "serve":
		return handleServeCommand(cfg)
	default:
		fmt.Printf("Unknown command: %s\n", cfg.Command)
		utils.PrintUsage(os.Stdout, flag.CommandLine)
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}

// openDatabase initializes the database, retrying while another process holds a lock on it
func openDatabase(path string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		db, err = database.InitDatabase(path)
		if err == nil {
			return db, nil
		}

		if i < maxRetries-1 {
			logging.LogWarning("Error initializing database (attempt %d/%d): %v - retrying...", i+1, maxRetries, err)
			time.Sleep(time.Second * time.Duration(i+1))
		}
	}

	return nil, fmt.Errorf("error initializing database after %d attempts: %w", maxRetries, err)
}

// setupCache creates the cache backend for search results; nil means no caching
func setupCache(ctx context.Context, cfg *config.Config) (cache.Provider, error) {
	switch cfg.Cache {
	case config.CacheMemory:
		return memory.New(cfg.CacheTTL), nil
	case config.CacheRedis:
		return redis.New(ctx, cfg.CacheRedisAddress, cfg.CacheRedisPoolSize, cfg.CacheTTL)
	default:
		return nil, nil
	}
}

func newUnsplashClient(ctx context.Context, cfg *config.Config) (*unsplash.Client, cache.Provider, error) {
	if cfg.UnsplashClientID == "" {
		return nil, nil, errors.New("missing unsplash client id (use -unsplash-client-id or PHOTOSEARCH_UNSPLASH_CLIENT_ID)")
	}

	provider, err := setupCache(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing cache: %w", err)
	}

	return unsplash.New(cfg.UnsplashURL, cfg.UnsplashClientID, provider), provider, nil
}
