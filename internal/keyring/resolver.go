// Package keyring resolves logical function names to usable vendor
// credentials, following the mapping's preferred/fallback chain and the
// per-category primary designation.
package keyring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/creatorstack/keywarden/internal/models"
	"github.com/creatorstack/keywarden/internal/secrets"
	"github.com/creatorstack/keywarden/internal/storage"
)

var (
	// ErrNoUsableKey means the mapping exists but no referenced service has
	// an active key and the category has no primary to fall back on.
	ErrNoUsableKey = errors.New("no usable key for function")
)

// Credential is a decrypted, ready-to-use vendor credential.
type Credential struct {
	ServiceName string  `json:"service_name"`
	Category    string  `json:"category"`
	APIKey      string  `json:"api_key"`
	BaseURL     *string `json:"base_url,omitempty"`
}

type cachedCredential struct {
	cred      *Credential
	expiresAt time.Time
}

// Resolver resolves function names to credentials with a TTL cache over the
// store. Mutations to keys or mappings must invalidate the cache.
type Resolver struct {
	mappings storage.MappingStore
	keys     storage.ServiceKeyStore
	secrets  secrets.SecretStore

	mu       sync.RWMutex
	cache    map[string]*cachedCredential
	cacheTTL time.Duration
}

func NewResolver(mappings storage.MappingStore, keys storage.ServiceKeyStore, secretStore secrets.SecretStore) *Resolver {
	return &Resolver{
		mappings: mappings,
		keys:     keys,
		secrets:  secretStore,
		cache:    make(map[string]*cachedCredential),
		cacheTTL: 5 * time.Minute,
	}
}

// Resolve returns the credential for a logical function name. Selection
// order: preferred service, fallback service, then the category's primary
// key. Stale mapping references (service without an active key) are skipped
// with a warning.
func (r *Resolver) Resolve(ctx context.Context, functionName string) (*Credential, error) {
	if cached := r.getFromCache(functionName); cached != nil {
		return cached, nil
	}

	mapping, err := r.mappings.GetMappingByFunction(ctx, functionName)
	if err != nil {
		return nil, err
	}

	key := r.pickKey(ctx, mapping)
	if key == nil {
		return nil, ErrNoUsableKey
	}

	plaintext, err := r.secrets.Decrypt(key.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key for %s: %w", key.ServiceName, err)
	}

	cred := &Credential{
		ServiceName: key.ServiceName,
		Category:    key.Category,
		APIKey:      plaintext,
		BaseURL:     key.BaseURL,
	}

	r.putInCache(functionName, cred)
	return cred, nil
}

func (r *Resolver) pickKey(ctx context.Context, mapping *models.FunctionMapping) *models.ServiceKey {
	candidates := []string{mapping.PreferredService}
	if mapping.FallbackService != nil {
		candidates = append(candidates, *mapping.FallbackService)
	}

	for _, name := range candidates {
		if name == "" {
			continue
		}
		key, err := r.keys.GetServiceKeyByName(ctx, name)
		if errors.Is(err, storage.ErrServiceKeyNotFound) {
			slog.Warn("mapping references unknown service",
				"function", mapping.FunctionName, "service", name)
			continue
		}
		if err != nil {
			slog.Warn("service key lookup failed",
				"function", mapping.FunctionName, "service", name, "error", err)
			continue
		}
		if !key.IsActive {
			slog.Warn("mapping references inactive service key",
				"function", mapping.FunctionName, "service", name)
			continue
		}
		return key
	}

	// Neither reference is usable: fall back to the category primary.
	primary, err := r.keys.GetPrimaryForCategory(ctx, mapping.Category)
	if err != nil {
		return nil
	}
	return primary
}

func (r *Resolver) getFromCache(functionName string) *Credential {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cached, ok := r.cache[functionName]
	if !ok || time.Now().After(cached.expiresAt) {
		return nil
	}
	return cached.cred
}

func (r *Resolver) putInCache(functionName string, cred *Credential) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache[functionName] = &cachedCredential{
		cred:      cred,
		expiresAt: time.Now().Add(r.cacheTTL),
	}
}

// Invalidate drops every cached credential. Called after any key or mapping
// write; per-entry invalidation is not worth the bookkeeping at this scale.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*cachedCredential)
}
