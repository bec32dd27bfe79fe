package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type PostgresStorage struct {
	db    *sqlx.DB
	stats *StatsManager
}

// PostgresStorageConfig holds configuration for the storage layer.
type PostgresStorageConfig struct {
	StatsFlushInterval time.Duration
}

func NewPostgresStorage(ctx context.Context, dsn string, maxConns int, cfg *PostgresStorageConfig) (*PostgresStorage, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg == nil {
		cfg = &PostgresStorageConfig{
			StatsFlushInterval: 60 * time.Second,
		}
	}

	s := &PostgresStorage{
		db:    db,
		stats: NewStatsManager(db, cfg.StatsFlushInterval),
	}

	// Load persisted validation sketches on startup
	if err := s.stats.LoadFromDB(ctx); err != nil {
		slog.Warn("failed to load validation stats from DB", "error", err)
	}
	s.stats.Start()

	// Read-repair: the single-primary invariant can be violated by writes
	// that predate the transactional upsert
	if fixed, err := s.ReconcilePrimaries(ctx); err != nil {
		slog.Warn("primary flag reconciliation failed", "error", err)
	} else if fixed > 0 {
		slog.Info("repaired duplicate primary flags", "records_cleared", fixed)
	}

	return s, nil
}

// Stats exposes the validation stats manager.
func (s *PostgresStorage) Stats() *StatsManager {
	return s.stats
}

// Ping verifies database connectivity for readiness checks.
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	if s.stats != nil {
		s.stats.Stop()
	}
	return s.db.Close()
}
