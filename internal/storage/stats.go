package storage

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/axiomhq/hyperloglog"
	"github.com/jmoiron/sqlx"
	"github.com/creatorstack/keywarden/internal/models"
)

type statsEntry struct {
	hll      *hyperloglog.Sketch
	attempts int64 // delta since last flush
	dirty    bool
}

// StatsManager tracks per-service validation attempts and an estimate of
// distinct key fingerprints seen, using HyperLogLog sketches. Sketches live
// in memory and flush to the database on an interval.
type StatsManager struct {
	mu            sync.RWMutex
	entries       map[string]*statsEntry
	db            *sqlx.DB
	flushInterval time.Duration
	done          chan struct{}
	wg            sync.WaitGroup
}

func NewStatsManager(db *sqlx.DB, flushInterval time.Duration) *StatsManager {
	return &StatsManager{
		entries:       make(map[string]*statsEntry),
		db:            db,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}
}

// LoadFromDB restores persisted sketches on startup so estimates survive
// restarts.
func (m *StatsManager) LoadFromDB(ctx context.Context) error {
	rows, err := m.db.QueryContext(ctx, `
		SELECT service_name, hll_state
		FROM validation_stats
		WHERE hll_state IS NOT NULL`)
	if err != nil {
		return err
	}
	defer rows.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	for rows.Next() {
		var serviceName string
		var hllBytes []byte
		if err := rows.Scan(&serviceName, &hllBytes); err != nil {
			slog.Warn("failed to scan validation stats row", "error", err)
			continue
		}

		hll := hyperloglog.New()
		if err := hll.UnmarshalBinary(hllBytes); err != nil {
			slog.Warn("failed to unmarshal validation sketch", "error", err, "service", serviceName)
			continue
		}

		m.entries[serviceName] = &statsEntry{hll: hll}
	}
	return rows.Err()
}

// RecordValidation notes one validation attempt for a service. The key
// fingerprint (never the plaintext key) feeds the distinct-key sketch.
func (m *StatsManager) RecordValidation(serviceName, keyFingerprint string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[serviceName]
	if !ok {
		entry = &statsEntry{hll: hyperloglog.New()}
		m.entries[serviceName] = entry
	}
	entry.hll.Insert([]byte(keyFingerprint))
	entry.attempts++
	entry.dirty = true
}

// Start launches the periodic flush loop.
func (m *StatsManager) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.flush(context.Background())
			case <-m.done:
				m.flush(context.Background())
				return
			}
		}
	}()
}

// Stop triggers a final flush and waits for the loop to exit.
func (m *StatsManager) Stop() {
	close(m.done)
	m.wg.Wait()
}

func (m *StatsManager) flush(ctx context.Context) {
	type pending struct {
		service  string
		state    []byte
		attempts int64
	}

	m.mu.Lock()
	var batch []pending
	for service, entry := range m.entries {
		if !entry.dirty {
			continue
		}
		state, err := entry.hll.MarshalBinary()
		if err != nil {
			slog.Warn("failed to marshal validation sketch", "error", err, "service", service)
			continue
		}
		batch = append(batch, pending{service: service, state: state, attempts: entry.attempts})
		entry.attempts = 0
		entry.dirty = false
	}
	m.mu.Unlock()

	for _, p := range batch {
		_, err := m.db.ExecContext(ctx, `
			INSERT INTO validation_stats (service_name, attempts, hll_state, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (service_name) DO UPDATE SET
				attempts   = validation_stats.attempts + EXCLUDED.attempts,
				hll_state  = EXCLUDED.hll_state,
				updated_at = now()`,
			p.service, p.attempts, p.state)
		if err != nil {
			slog.Error("failed to flush validation stats", "error", err, "service", p.service)
		}
	}
}

// ListValidationStats returns the persisted counters overlaid with unflushed
// in-memory deltas and the current sketch estimates.
func (m *StatsManager) ListValidationStats(ctx context.Context) ([]*models.ServiceValidationStat, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT service_name, attempts FROM validation_stats`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	persisted := make(map[string]int64)
	for rows.Next() {
		var service string
		var attempts int64
		if err := rows.Scan(&service, &attempts); err != nil {
			return nil, err
		}
		persisted[service] = attempts
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool, len(persisted)+len(m.entries))
	var stats []*models.ServiceValidationStat

	for service, entry := range m.entries {
		seen[service] = true
		stats = append(stats, &models.ServiceValidationStat{
			ServiceName:  service,
			Attempts:     persisted[service] + entry.attempts,
			DistinctKeys: entry.hll.Estimate(),
		})
	}
	for service, attempts := range persisted {
		if seen[service] {
			continue
		}
		stats = append(stats, &models.ServiceValidationStat{
			ServiceName: service,
			Attempts:    attempts,
		})
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].ServiceName < stats[j].ServiceName })
	return stats, nil
}
