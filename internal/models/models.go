package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceKey is one stored credential for a named vendor service.
// service_name is globally unique; within a category at most one record
// may carry is_primary = true.
type ServiceKey struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ServiceName   string     `json:"service_name" db:"service_name"`
	Category      string     `json:"category" db:"category"`
	APIKey        string     `json:"-" db:"api_key"` // encrypted at rest, never serialized
	BaseURL       *string    `json:"base_url,omitempty" db:"base_url"`
	IsPrimary     bool       `json:"is_primary" db:"is_primary"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	Status        string     `json:"status" db:"status"`
	LastValidated *time.Time `json:"last_validated,omitempty" db:"last_validated"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// MaskedKey returns the trailing characters of the plaintext key for display.
// Callers pass the decrypted material; the stored column holds ciphertext.
func MaskedKey(plaintext string) string {
	const visible = 4
	if len(plaintext) <= visible {
		return "****"
	}
	return "****" + plaintext[len(plaintext)-visible:]
}

// UpsertServiceKeyInput carries validated key data into the storage layer.
// APIKey holds the encrypted material by the time it reaches storage.
type UpsertServiceKeyInput struct {
	ServiceName string
	Category    string
	APIKey      string
	BaseURL     *string
	IsPrimary   bool
}

// FunctionMapping binds a logical capability name to a preferred service,
// with an optional fallback. Service references are soft: no foreign key
// against service_keys, staleness is handled at resolve time.
type FunctionMapping struct {
	ID               uuid.UUID `json:"id" db:"id"`
	FunctionName     string    `json:"function_name" db:"function_name"`
	Category         string    `json:"category" db:"category"`
	Description      *string   `json:"description,omitempty" db:"description"`
	PreferredService string    `json:"preferred_service" db:"preferred_service"`
	FallbackService  *string   `json:"fallback_service,omitempty" db:"fallback_service"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateMappingInput upserts a mapping keyed by function name.
type UpdateMappingInput struct {
	FunctionName     string
	PreferredService string
	FallbackService  *string
}

// AddMappingInput creates a new mapping; unlike UpdateMappingInput it
// requires a category and allows an empty preferred service.
type AddMappingInput struct {
	FunctionName     string
	Category         string
	Description      *string
	PreferredService string
}

// ValidationResult is the verdict of one key validation.
type ValidationResult struct {
	Valid   bool   `json:"is_valid"`
	Message string `json:"error_message,omitempty"`
}

// User is an admin dashboard account.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CreateUserInput holds data for creating a new admin user.
type CreateUserInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ServiceValidationStat is one row of the per-service validation counters,
// with the distinct-key estimate unpacked from the stored HLL sketch.
type ServiceValidationStat struct {
	ServiceName  string `json:"service_name"`
	Attempts     int64  `json:"attempts"`
	DistinctKeys uint64 `json:"distinct_keys"`
}
