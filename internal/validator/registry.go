package validator

import (
	"context"
	"net/http"
	"time"

	"github.com/creatorstack/keywarden/internal/models"
)

// Input is one submitted key to validate.
type Input struct {
	ServiceName string
	Category    string
	APIKey      string
	BaseURL     string
}

// Validator checks one submitted key and returns a verdict. Implementations
// must not panic and must convert transport failures into invalid verdicts.
type Validator interface {
	Validate(ctx context.Context, in Input) models.ValidationResult
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, in Input) models.ValidationResult

func (f ValidatorFunc) Validate(ctx context.Context, in Input) models.ValidationResult {
	return f(ctx, in)
}

// Config holds the probe endpoints and static-check thresholds used to
// populate the default registry.
type Config struct {
	ProbeTimeout time.Duration
	MinKeyLength int

	OpenAIBaseURL     string
	ElevenLabsBaseURL string
	RunwayBaseURL     string
}

// Registry maps service kinds to validation strategies. New services are
// added by registration, not by editing a dispatch function.
type Registry struct {
	validators map[ServiceKind]Validator
	fallback   Validator
}

// NewRegistry builds a registry with the default strategy set: live probes
// for OpenAI, ElevenLabs and Runway, pattern checks for vendors with a
// recognizable key convention, and a length-only fallback.
func NewRegistry(cfg Config) *Registry {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.MinKeyLength <= 0 {
		cfg.MinKeyLength = 10
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = "https://api.openai.com"
	}
	if cfg.ElevenLabsBaseURL == "" {
		cfg.ElevenLabsBaseURL = "https://api.elevenlabs.io"
	}
	if cfg.RunwayBaseURL == "" {
		cfg.RunwayBaseURL = "https://api.runwayml.com"
	}

	client := &http.Client{Timeout: cfg.ProbeTimeout}

	r := &Registry{
		validators: make(map[ServiceKind]Validator),
		fallback:   &LengthValidator{Min: cfg.MinKeyLength},
	}

	r.Register(KindOpenAI, &OpenAIProbe{Client: client, BaseURL: cfg.OpenAIBaseURL})
	r.Register(KindElevenLabs, &ElevenLabsProbe{Client: client, BaseURL: cfg.ElevenLabsBaseURL})
	r.Register(KindRunway, &RunwayProbe{Client: client, DefaultBaseURL: cfg.RunwayBaseURL})
	r.Register(KindStability, &PatternValidator{Prefix: "sk-", MinLength: 32})
	r.Register(KindAnthropic, &PatternValidator{Prefix: "sk-ant-", MinLength: 32})
	r.Register(KindGemini, &PatternValidator{Prefix: "AIza", MinLength: 39})
	r.Register(KindOpenRouter, &PatternValidator{Prefix: "sk-or-", MinLength: 32})

	return r
}

// Register binds a validator to a kind, replacing any previous binding.
func (r *Registry) Register(kind ServiceKind, v Validator) {
	r.validators[kind] = v
}

// Select returns the validator for a service name. It is total: names that
// classify to an unregistered kind get the generic fallback.
func (r *Registry) Select(serviceName string) Validator {
	if v, ok := r.validators[ClassifyService(serviceName)]; ok {
		return v
	}
	return r.fallback
}
