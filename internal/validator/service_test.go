package validator

import (
	"context"
	"strings"
	"testing"

	"github.com/creatorstack/keywarden/internal/models"
)

// tripwireValidator fails the test if any strategy is ever invoked.
func tripwireValidator(t *testing.T) Validator {
	t.Helper()
	return ValidatorFunc(func(ctx context.Context, in Input) models.ValidationResult {
		t.Errorf("validator invoked for %q, expected short-circuit", in.ServiceName)
		return models.ValidationResult{Valid: false}
	})
}

func tripwireRegistry(t *testing.T) *Registry {
	r := NewRegistry(Config{})
	for _, kind := range []ServiceKind{
		KindOpenAI, KindElevenLabs, KindRunway, KindStability,
		KindAnthropic, KindGemini, KindOpenRouter,
	} {
		r.Register(kind, tripwireValidator(t))
	}
	r.fallback = tripwireValidator(t)
	return r
}

func TestServiceTestSentinelBypassesValidators(t *testing.T) {
	svc := NewService(tripwireRegistry(t), "TEST_")

	got := svc.Validate(context.Background(), Input{
		ServiceName: "OpenAI",
		Category:    "Text Generation",
		APIKey:      "TEST_anything",
	})
	if !got.Valid {
		t.Errorf("test sentinel key rejected: %q", got.Message)
	}
}

func TestServiceRequiredFields(t *testing.T) {
	svc := NewService(tripwireRegistry(t), "TEST_")

	tests := []struct {
		name   string
		in     Input
		wantIn string
	}{
		{"missing service name", Input{APIKey: "k", Category: "c"}, "service name"},
		{"missing api key", Input{ServiceName: "s", Category: "c"}, "API key"},
		{"missing category", Input{ServiceName: "s", APIKey: "0123456789"}, "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Validate(context.Background(), tt.in)
			if got.Valid {
				t.Fatal("incomplete input accepted")
			}
			if !strings.Contains(got.Message, tt.wantIn) {
				t.Errorf("message = %q, want substring %q", got.Message, tt.wantIn)
			}
		})
	}
}

func TestServiceDispatchesToSelectedValidator(t *testing.T) {
	r := NewRegistry(Config{})
	called := ""
	r.Register(KindElevenLabs, ValidatorFunc(func(ctx context.Context, in Input) models.ValidationResult {
		called = in.ServiceName
		return models.ValidationResult{Valid: true}
	}))

	svc := NewService(r, "TEST_")
	got := svc.Validate(context.Background(), Input{
		ServiceName: "ElevenLabs",
		Category:    "Voice Generation",
		APIKey:      "xi-0123456789",
	})
	if !got.Valid {
		t.Errorf("valid = false, message %q", got.Message)
	}
	if called != "ElevenLabs" {
		t.Errorf("registered validator not invoked, called = %q", called)
	}
}

func TestServiceGenericFallback(t *testing.T) {
	svc := NewService(NewRegistry(Config{MinKeyLength: 10}), "TEST_")

	short := svc.Validate(context.Background(), Input{
		ServiceName: "CustomThing", Category: "Other", APIKey: "123456789",
	})
	if short.Valid {
		t.Error("9-char key accepted by generic fallback with threshold 10")
	}

	ok := svc.Validate(context.Background(), Input{
		ServiceName: "CustomThing", Category: "Other", APIKey: "1234567890",
	})
	if !ok.Valid {
		t.Errorf("10-char key rejected: %q", ok.Message)
	}
}
