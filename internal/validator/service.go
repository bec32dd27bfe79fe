package validator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/creatorstack/keywarden/internal/auth"
	"github.com/creatorstack/keywarden/internal/models"
)

// DefaultTestPrefix marks demo credentials that bypass real validation.
const DefaultTestPrefix = "TEST_"

// Service orchestrates validation of one submitted key.
type Service struct {
	registry   *Registry
	testPrefix string
}

func NewService(registry *Registry, testPrefix string) *Service {
	if testPrefix == "" {
		testPrefix = DefaultTestPrefix
	}
	return &Service{
		registry:   registry,
		testPrefix: testPrefix,
	}
}

// IsTestKey reports whether submitted key material carries the test sentinel
// prefix. Test keys are accepted without contacting any vendor.
func (s *Service) IsTestKey(apiKey string) bool {
	return strings.HasPrefix(apiKey, s.testPrefix)
}

// Validate resolves the strategy for the service name and applies it.
// It never panics and never issues a network call for test-sentinel keys.
func (s *Service) Validate(ctx context.Context, in Input) models.ValidationResult {
	if in.ServiceName == "" {
		return invalid("service name is required")
	}
	if in.APIKey == "" {
		return invalid("API key is required")
	}
	if in.Category == "" {
		return invalid("category is required")
	}

	if s.IsTestKey(in.APIKey) {
		slog.Info("accepting test key without validation",
			"service", in.ServiceName,
			"fingerprint", auth.ShortFingerprint(in.APIKey))
		return models.ValidationResult{Valid: true}
	}

	result := s.registry.Select(in.ServiceName).Validate(ctx, in)
	if !result.Valid {
		slog.Info("key validation failed",
			"service", in.ServiceName,
			"kind", string(ClassifyService(in.ServiceName)),
			"reason", result.Message)
	}
	return result
}
