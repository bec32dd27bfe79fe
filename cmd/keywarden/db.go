package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/creatorstack/keywarden/internal/config"
	"github.com/creatorstack/keywarden/internal/storage"
)

// connectDB creates a PostgresStorage connection using the config.
// CLI commands that don't need the stats manager pass nil for storageConfig.
func connectDB(configPath string, storageConfig *storage.PostgresStorageConfig) *storage.PostgresStorage {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.NewPostgresStorage(
		context.Background(),
		cfg.Storage.Postgres.DSN(),
		cfg.Storage.Postgres.MaxConns,
		storageConfig,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}

	return store
}

// loadConfig loads the application configuration, reading .env first.
func loadConfig(configPath string) *config.Config {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	return cfg
}
