package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/creatorstack/keywarden/internal/models"
)

// ServiceKeyStore is the persistence surface for vendor key records.
// The storage layer exclusively owns writes; validation never touches it.
type ServiceKeyStore interface {
	UpsertServiceKey(ctx context.Context, input *models.UpsertServiceKeyInput) (*models.ServiceKey, error)
	GetServiceKeyByName(ctx context.Context, serviceName string) (*models.ServiceKey, error)
	GetServiceKeyByID(ctx context.Context, id uuid.UUID) (*models.ServiceKey, error)
	ListServiceKeys(ctx context.Context) ([]*models.ServiceKey, error)
	DeleteServiceKey(ctx context.Context, id uuid.UUID) error
	SetServiceKeyActive(ctx context.Context, id uuid.UUID, active bool) (*models.ServiceKey, error)
	GetPrimaryForCategory(ctx context.Context, category string) (*models.ServiceKey, error)
}

// MappingStore is the persistence surface for function mappings.
type MappingStore interface {
	UpdateMapping(ctx context.Context, input *models.UpdateMappingInput) (*models.FunctionMapping, error)
	AddMapping(ctx context.Context, input *models.AddMappingInput) (*models.FunctionMapping, error)
	ListMappings(ctx context.Context) ([]*models.FunctionMapping, error)
	GetMappingByFunction(ctx context.Context, functionName string) (*models.FunctionMapping, error)
}

// UserStore is the persistence surface for admin accounts.
type UserStore interface {
	CreateUser(ctx context.Context, input *models.CreateUserInput) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}
