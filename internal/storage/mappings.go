package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/creatorstack/keywarden/internal/models"
)

var (
	ErrMappingNotFound = errors.New("function mapping not found")
	ErrMappingExists   = errors.New("function mapping already exists")
)

const mappingColumns = `id, function_name, category, description, preferred_service, fallback_service, created_at, updated_at`

// UpdateMapping upserts a mapping keyed by function name. Service references
// are plain strings; no check is made against service_keys.
func (s *PostgresStorage) UpdateMapping(ctx context.Context, input *models.UpdateMappingInput) (*models.FunctionMapping, error) {
	var m models.FunctionMapping
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO function_mappings (function_name, category, preferred_service, fallback_service, updated_at)
		VALUES ($1, '', $2, $3, $4)
		ON CONFLICT (function_name) DO UPDATE SET
			preferred_service = EXCLUDED.preferred_service,
			fallback_service  = EXCLUDED.fallback_service,
			updated_at        = EXCLUDED.updated_at
		RETURNING `+mappingColumns,
		input.FunctionName, input.PreferredService, input.FallbackService, time.Now()).StructScan(&m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AddMapping creates a new mapping. Unlike UpdateMapping it requires a
// category and tolerates an empty preferred service, but refuses to clobber
// an existing function name.
func (s *PostgresStorage) AddMapping(ctx context.Context, input *models.AddMappingInput) (*models.FunctionMapping, error) {
	var m models.FunctionMapping
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO function_mappings (function_name, category, description, preferred_service)
		VALUES ($1, $2, $3, $4)
		RETURNING `+mappingColumns,
		input.FunctionName, input.Category, input.Description, input.PreferredService).StructScan(&m)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrMappingExists
		}
		return nil, err
	}
	return &m, nil
}

// ListMappings retrieves all mappings. Grouping into predefined vs custom
// sets is left to the presentation layer.
func (s *PostgresStorage) ListMappings(ctx context.Context) ([]*models.FunctionMapping, error) {
	var mappings []*models.FunctionMapping
	err := s.db.SelectContext(ctx, &mappings,
		`SELECT `+mappingColumns+` FROM function_mappings ORDER BY function_name`)
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

// GetMappingByFunction retrieves one mapping by its function name.
func (s *PostgresStorage) GetMappingByFunction(ctx context.Context, functionName string) (*models.FunctionMapping, error) {
	var m models.FunctionMapping
	err := s.db.GetContext(ctx, &m,
		`SELECT `+mappingColumns+` FROM function_mappings WHERE function_name = $1`, functionName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
