package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creatorstack/keywarden/internal/api"
	"github.com/creatorstack/keywarden/internal/auth"
	"github.com/creatorstack/keywarden/internal/keyring"
	"github.com/creatorstack/keywarden/internal/observability"
	"github.com/creatorstack/keywarden/internal/secrets"
	"github.com/creatorstack/keywarden/internal/server"
	"github.com/creatorstack/keywarden/internal/storage"
	"github.com/creatorstack/keywarden/internal/validator"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "keys":
		runKeys(os.Args[2:])
	case "mappings":
		runMappings(os.Args[2:])
	case "users":
		runUsers(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: keywarden <command> [options]

Commands:
  serve      Start the key validation server
  keys       Manage stored service keys
  mappings   Manage function mappings
  users      Manage admin users

Run 'keywarden <command> --help' for more information.`)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := loadConfig(*configPath)
	ctx := context.Background()

	store, err := storage.NewPostgresStorage(ctx, cfg.Storage.Postgres.DSN(), cfg.Storage.Postgres.MaxConns, &storage.PostgresStorageConfig{
		StatsFlushInterval: cfg.Stats.FlushInterval,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var secretStore secrets.SecretStore = secrets.PlaintextStore{}
	if cfg.Secrets.EncryptionKey != "" {
		aesStore, err := secrets.NewAESStore(cfg.Secrets.EncryptionKey)
		if err != nil {
			slog.Error("failed to initialize secret store", "error", err)
			os.Exit(1)
		}
		secretStore = aesStore
	} else {
		slog.Warn("no encryption key configured, storing key material in plaintext")
	}

	registry := validator.NewRegistry(validator.Config{
		ProbeTimeout:      cfg.Validation.ProbeTimeout,
		MinKeyLength:      cfg.Validation.MinKeyLength,
		OpenAIBaseURL:     cfg.Validation.OpenAIBaseURL,
		ElevenLabsBaseURL: cfg.Validation.ElevenLabsBaseURL,
		RunwayBaseURL:     cfg.Validation.RunwayBaseURL,
	})
	validatorSvc := validator.NewService(registry, cfg.Validation.TestPrefix)

	resolver := keyring.NewResolver(store, store, secretStore)

	var backupStore *storage.S3BackupStore
	if cfg.Backup.Enabled {
		backupStore, err = storage.NewS3BackupStore(ctx, storage.S3BackupConfig{
			Bucket:          cfg.Backup.Bucket,
			Region:          cfg.Backup.Region,
			Endpoint:        cfg.Backup.Endpoint,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		})
		if err != nil {
			slog.Error("failed to initialize backup store", "error", err)
			os.Exit(1)
		}
		slog.Info("S3 backup export enabled", "bucket", cfg.Backup.Bucket, "region", cfg.Backup.Region)
	}

	metrics := observability.NewMetrics(nil)

	var jwtSvc *auth.JWTService
	var adminHandler *api.AdminHandler
	if cfg.Auth.JWTSecret != "" {
		jwtSvc = auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)
		adminHandler = api.NewAdminHandler(store, jwtSvc)
		slog.Info("admin authentication enabled")
	} else {
		slog.Warn("no JWT secret configured, API is unauthenticated")
	}

	var backup api.BackupExporter
	if backupStore != nil {
		backup = backupStore
	}
	handler := api.NewHandler(store, store, validatorSvc, secretStore, resolver, store.Stats(), backup, metrics)

	srv := server.New(&cfg.Server, handler, adminHandler, jwtSvc, store)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-sigChan:
		slog.Info("received signal, shutting down", "signal", sig)
	}

	if err := srv.ShutdownWithTimeout(30 * time.Second); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
