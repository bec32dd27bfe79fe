package keyring

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/creatorstack/keywarden/internal/models"
	"github.com/creatorstack/keywarden/internal/secrets"
	"github.com/creatorstack/keywarden/internal/storage"
)

type fakeStore struct {
	mappings map[string]*models.FunctionMapping
	keys     map[string]*models.ServiceKey
	lookups  int
}

func (f *fakeStore) GetMappingByFunction(_ context.Context, name string) (*models.FunctionMapping, error) {
	m, ok := f.mappings[name]
	if !ok {
		return nil, storage.ErrMappingNotFound
	}
	return m, nil
}

func (f *fakeStore) UpdateMapping(context.Context, *models.UpdateMappingInput) (*models.FunctionMapping, error) {
	return nil, nil
}
func (f *fakeStore) AddMapping(context.Context, *models.AddMappingInput) (*models.FunctionMapping, error) {
	return nil, nil
}
func (f *fakeStore) ListMappings(context.Context) ([]*models.FunctionMapping, error) {
	return nil, nil
}

func (f *fakeStore) GetServiceKeyByName(_ context.Context, name string) (*models.ServiceKey, error) {
	f.lookups++
	k, ok := f.keys[name]
	if !ok {
		return nil, storage.ErrServiceKeyNotFound
	}
	return k, nil
}

func (f *fakeStore) GetPrimaryForCategory(_ context.Context, category string) (*models.ServiceKey, error) {
	for _, k := range f.keys {
		if k.Category == category && k.IsPrimary && k.IsActive {
			return k, nil
		}
	}
	return nil, storage.ErrServiceKeyNotFound
}

func (f *fakeStore) UpsertServiceKey(context.Context, *models.UpsertServiceKeyInput) (*models.ServiceKey, error) {
	return nil, nil
}
func (f *fakeStore) GetServiceKeyByID(context.Context, uuid.UUID) (*models.ServiceKey, error) {
	return nil, storage.ErrServiceKeyNotFound
}
func (f *fakeStore) ListServiceKeys(context.Context) ([]*models.ServiceKey, error) { return nil, nil }
func (f *fakeStore) DeleteServiceKey(context.Context, uuid.UUID) error             { return nil }
func (f *fakeStore) SetServiceKeyActive(context.Context, uuid.UUID, bool) (*models.ServiceKey, error) {
	return nil, storage.ErrServiceKeyNotFound
}

func strPtr(s string) *string { return &s }

func serviceKey(name, category, key string, primary, active bool) *models.ServiceKey {
	return &models.ServiceKey{
		ID:          uuid.New(),
		ServiceName: name,
		Category:    category,
		APIKey:      key,
		IsPrimary:   primary,
		IsActive:    active,
	}
}

func newTestResolver(f *fakeStore) *Resolver {
	return NewResolver(f, f, secrets.PlaintextStore{})
}

func TestResolvePreferredService(t *testing.T) {
	f := &fakeStore{
		mappings: map[string]*models.FunctionMapping{
			"AI Text Generation": {
				FunctionName:     "AI Text Generation",
				Category:         "Text Generation",
				PreferredService: "OpenAI",
				FallbackService:  strPtr("Anthropic"),
			},
		},
		keys: map[string]*models.ServiceKey{
			"OpenAI":    serviceKey("OpenAI", "Text Generation", "sk-live-abc", true, true),
			"Anthropic": serviceKey("Anthropic", "Text Generation", "sk-ant-xyz", false, true),
		},
	}

	cred, err := newTestResolver(f).Resolve(context.Background(), "AI Text Generation")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cred.ServiceName != "OpenAI" || cred.APIKey != "sk-live-abc" {
		t.Errorf("Resolve() = %+v, want preferred OpenAI credential", cred)
	}
}

func TestResolveFallsBackWhenPreferredInactive(t *testing.T) {
	f := &fakeStore{
		mappings: map[string]*models.FunctionMapping{
			"Voice Generation": {
				FunctionName:     "Voice Generation",
				Category:         "Voice Generation",
				PreferredService: "ElevenLabs",
				FallbackService:  strPtr("PlayHT"),
			},
		},
		keys: map[string]*models.ServiceKey{
			"ElevenLabs": serviceKey("ElevenLabs", "Voice Generation", "xi-old", false, false),
			"PlayHT":     serviceKey("PlayHT", "Voice Generation", "ph-abc", false, true),
		},
	}

	cred, err := newTestResolver(f).Resolve(context.Background(), "Voice Generation")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cred.ServiceName != "PlayHT" {
		t.Errorf("Resolve() picked %s, want fallback PlayHT", cred.ServiceName)
	}
}

func TestResolveStaleReferenceUsesCategoryPrimary(t *testing.T) {
	f := &fakeStore{
		mappings: map[string]*models.FunctionMapping{
			"Image Generation": {
				FunctionName:     "Image Generation",
				Category:         "Image Generation",
				PreferredService: "DeletedService",
			},
		},
		keys: map[string]*models.ServiceKey{
			"Stability AI": serviceKey("Stability AI", "Image Generation", "sk-stable", true, true),
		},
	}

	cred, err := newTestResolver(f).Resolve(context.Background(), "Image Generation")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cred.ServiceName != "Stability AI" {
		t.Errorf("Resolve() picked %s, want category primary", cred.ServiceName)
	}
}

func TestResolveNoUsableKey(t *testing.T) {
	f := &fakeStore{
		mappings: map[string]*models.FunctionMapping{
			"Meme Generation": {
				FunctionName:     "Meme Generation",
				Category:         "Image Generation",
				PreferredService: "Nope",
			},
		},
		keys: map[string]*models.ServiceKey{},
	}

	_, err := newTestResolver(f).Resolve(context.Background(), "Meme Generation")
	if err != ErrNoUsableKey {
		t.Errorf("Resolve() error = %v, want ErrNoUsableKey", err)
	}
}

func TestResolveUnknownFunction(t *testing.T) {
	f := &fakeStore{mappings: map[string]*models.FunctionMapping{}}

	_, err := newTestResolver(f).Resolve(context.Background(), "Unmapped")
	if err != storage.ErrMappingNotFound {
		t.Errorf("Resolve() error = %v, want ErrMappingNotFound", err)
	}
}

func TestResolveCachesUntilInvalidated(t *testing.T) {
	f := &fakeStore{
		mappings: map[string]*models.FunctionMapping{
			"AI Text Generation": {
				FunctionName:     "AI Text Generation",
				Category:         "Text Generation",
				PreferredService: "OpenAI",
			},
		},
		keys: map[string]*models.ServiceKey{
			"OpenAI": serviceKey("OpenAI", "Text Generation", "sk-live-abc", true, true),
		},
	}

	r := newTestResolver(f)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "AI Text Generation"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := r.Resolve(ctx, "AI Text Generation"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if f.lookups != 1 {
		t.Errorf("key lookups = %d, want 1 (second resolve served from cache)", f.lookups)
	}

	r.Invalidate()
	if _, err := r.Resolve(ctx, "AI Text Generation"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if f.lookups != 2 {
		t.Errorf("key lookups = %d, want 2 after invalidation", f.lookups)
	}
}
