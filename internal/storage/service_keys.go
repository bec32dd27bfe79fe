package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/creatorstack/keywarden/internal/models"
)

var (
	ErrServiceKeyNotFound = errors.New("service key not found")
)

const serviceKeyColumns = `id, service_name, category, api_key, base_url, is_primary, is_active, status, last_validated, created_at, updated_at`

// UpsertServiceKey records a validated key. Lookups are keyed by the globally
// unique service_name: an existing record is updated in place, otherwise a
// new one is inserted. When the primary flag is requested, every other record
// in the category is demoted first; both writes run in one transaction so a
// category never settles with two primaries.
func (s *PostgresStorage) UpsertServiceKey(ctx context.Context, input *models.UpsertServiceKeyInput) (*models.ServiceKey, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	if input.IsPrimary {
		_, err = tx.ExecContext(ctx, `
			UPDATE service_keys
			SET is_primary = false, updated_at = $1
			WHERE category = $2 AND service_name <> $3 AND is_primary = true`,
			now, input.Category, input.ServiceName)
		if err != nil {
			return nil, fmt.Errorf("failed to demote existing primary: %w", err)
		}
	}

	var key models.ServiceKey
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO service_keys (service_name, category, api_key, base_url, is_primary, is_active, status, last_validated, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, 'active', $6, $6)
		ON CONFLICT (service_name) DO UPDATE SET
			category       = EXCLUDED.category,
			api_key        = EXCLUDED.api_key,
			base_url       = EXCLUDED.base_url,
			is_primary     = EXCLUDED.is_primary,
			is_active      = true,
			status         = 'active',
			last_validated = EXCLUDED.last_validated,
			updated_at     = EXCLUDED.updated_at
		RETURNING `+serviceKeyColumns,
		input.ServiceName, input.Category, input.APIKey, input.BaseURL, input.IsPrimary, now).StructScan(&key)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert service key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit upsert: %w", err)
	}

	// Re-read the canonical persisted state. The write already committed, so
	// a failure here is reported as a warning, not an error.
	persisted, err := s.GetServiceKeyByName(ctx, input.ServiceName)
	if err != nil {
		slog.Warn("re-fetch after upsert failed, returning write result",
			"service", input.ServiceName, "error", err)
		return &key, nil
	}
	return persisted, nil
}

// GetServiceKeyByName retrieves a key record by its unique service name.
func (s *PostgresStorage) GetServiceKeyByName(ctx context.Context, serviceName string) (*models.ServiceKey, error) {
	var key models.ServiceKey
	err := s.db.GetContext(ctx, &key,
		`SELECT `+serviceKeyColumns+` FROM service_keys WHERE service_name = $1`, serviceName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// GetServiceKeyByID retrieves a key record by its UUID.
func (s *PostgresStorage) GetServiceKeyByID(ctx context.Context, id uuid.UUID) (*models.ServiceKey, error) {
	var key models.ServiceKey
	err := s.db.GetContext(ctx, &key,
		`SELECT `+serviceKeyColumns+` FROM service_keys WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// ListServiceKeys retrieves all key records, newest first.
func (s *PostgresStorage) ListServiceKeys(ctx context.Context) ([]*models.ServiceKey, error) {
	var keys []*models.ServiceKey
	err := s.db.SelectContext(ctx, &keys,
		`SELECT `+serviceKeyColumns+` FROM service_keys ORDER BY category, service_name`)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// DeleteServiceKey removes a key record. Deletion is an explicit admin
// operation, never triggered automatically.
func (s *PostgresStorage) DeleteServiceKey(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM service_keys WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrServiceKeyNotFound
	}
	return nil
}

// SetServiceKeyActive flips the is_active toggle, independent of primary status.
func (s *PostgresStorage) SetServiceKeyActive(ctx context.Context, id uuid.UUID, active bool) (*models.ServiceKey, error) {
	var key models.ServiceKey
	err := s.db.QueryRowxContext(ctx, `
		UPDATE service_keys
		SET is_active = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+serviceKeyColumns,
		active, time.Now(), id).StructScan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// GetPrimaryForCategory returns the active primary key record of a category.
func (s *PostgresStorage) GetPrimaryForCategory(ctx context.Context, category string) (*models.ServiceKey, error) {
	var key models.ServiceKey
	err := s.db.GetContext(ctx, &key, `
		SELECT `+serviceKeyColumns+`
		FROM service_keys
		WHERE category = $1 AND is_primary = true AND is_active = true
		ORDER BY last_validated DESC NULLS LAST
		LIMIT 1`, category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// ReconcilePrimaries repairs categories holding more than one primary record,
// keeping the most recently validated one. Returns the number of records
// demoted.
func (s *PostgresStorage) ReconcilePrimaries(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE service_keys
		SET is_primary = false, updated_at = now()
		WHERE is_primary = true AND id NOT IN (
			SELECT DISTINCT ON (category) id
			FROM service_keys
			WHERE is_primary = true
			ORDER BY category, last_validated DESC NULLS LAST, updated_at DESC
		)`)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
