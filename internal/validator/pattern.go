package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/creatorstack/keywarden/internal/models"
)

// PatternValidator checks a vendor key convention without a network call:
// a required prefix and a minimum length.
type PatternValidator struct {
	Prefix    string
	MinLength int
}

func (v *PatternValidator) Validate(_ context.Context, in Input) models.ValidationResult {
	if v.Prefix != "" && !strings.HasPrefix(in.APIKey, v.Prefix) {
		return invalid(fmt.Sprintf("key must start with %q", v.Prefix))
	}
	if len(in.APIKey) < v.MinLength {
		return invalid(fmt.Sprintf("key is too short: expected at least %d characters", v.MinLength))
	}
	return models.ValidationResult{Valid: true}
}

// LengthValidator is the generic fallback for services with no known key
// convention and no live validation endpoint.
type LengthValidator struct {
	Min int
}

func (v *LengthValidator) Validate(_ context.Context, in Input) models.ValidationResult {
	if len(in.APIKey) < v.Min {
		return invalid(fmt.Sprintf("key is too short: expected at least %d characters", v.Min))
	}
	return models.ValidationResult{Valid: true}
}
