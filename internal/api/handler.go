package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/creatorstack/keywarden/internal/auth"
	"github.com/creatorstack/keywarden/internal/keyring"
	"github.com/creatorstack/keywarden/internal/models"
	"github.com/creatorstack/keywarden/internal/observability"
	"github.com/creatorstack/keywarden/internal/secrets"
	"github.com/creatorstack/keywarden/internal/storage"
	"github.com/creatorstack/keywarden/internal/validator"
)

// ValidationStats records validation attempts and serves aggregate counters.
type ValidationStats interface {
	RecordValidation(serviceName, keyFingerprint string)
	ListValidationStats(ctx context.Context) ([]*models.ServiceValidationStat, error)
}

// BackupExporter uploads a snapshot and returns its object key.
type BackupExporter interface {
	Export(ctx context.Context, snapshot *storage.BackupSnapshot) (string, error)
}

// Handler serves the key validation, key CRUD, mapping and stats endpoints.
type Handler struct {
	keys      storage.ServiceKeyStore
	mappings  storage.MappingStore
	validator *validator.Service
	secrets   secrets.SecretStore
	resolver  *keyring.Resolver
	stats     ValidationStats // optional
	backup    BackupExporter  // optional
	metrics   *observability.Metrics
}

func NewHandler(
	keys storage.ServiceKeyStore,
	mappings storage.MappingStore,
	validatorSvc *validator.Service,
	secretStore secrets.SecretStore,
	resolver *keyring.Resolver,
	stats ValidationStats,
	backup BackupExporter,
	metrics *observability.Metrics,
) *Handler {
	return &Handler{
		keys:      keys,
		mappings:  mappings,
		validator: validatorSvc,
		secrets:   secretStore,
		resolver:  resolver,
		stats:     stats,
		backup:    backup,
		metrics:   metrics,
	}
}

type validateKeyRequest struct {
	ServiceName string `json:"serviceName"`
	Category    string `json:"category"`
	APIKey      string `json:"apiKey"`
	BaseURL     string `json:"baseUrl,omitempty"`
	IsPrimary   bool   `json:"isPrimary,omitempty"`
}

// keyResponse is a ServiceKey with the secret replaced by its masked form.
type keyResponse struct {
	*models.ServiceKey
	MaskedKey string `json:"masked_key"`
}

// ValidateAndSaveKey handles POST /api/v1/keys/validate. It validates the
// submitted key (or accepts it outright for test-sentinel material), then
// persists it and returns the canonical record.
func (h *Handler) ValidateAndSaveKey(w http.ResponseWriter, r *http.Request) {
	var req validateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := validator.ClassifyService(req.ServiceName)
	start := time.Now()

	result := h.validator.Validate(r.Context(), validator.Input{
		ServiceName: req.ServiceName,
		Category:    req.Category,
		APIKey:      req.APIKey,
		BaseURL:     req.BaseURL,
	})

	h.metrics.ValidationDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	h.metrics.ValidationsTotal.WithLabelValues(string(kind), verdictLabel(result.Valid)).Inc()
	if h.stats != nil && req.ServiceName != "" && req.APIKey != "" {
		h.stats.RecordValidation(req.ServiceName, auth.Fingerprint(req.APIKey))
	}

	if !result.Valid {
		writeError(w, http.StatusBadRequest, result.Message)
		return
	}

	encrypted, err := h.secrets.Encrypt(req.APIKey)
	if err != nil {
		slog.Error("failed to encrypt key material", "service", req.ServiceName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	input := &models.UpsertServiceKeyInput{
		ServiceName: req.ServiceName,
		Category:    req.Category,
		APIKey:      encrypted,
		IsPrimary:   req.IsPrimary,
	}
	if req.BaseURL != "" {
		input.BaseURL = &req.BaseURL
	}

	record, err := h.keys.UpsertServiceKey(r.Context(), input)
	if err != nil {
		h.metrics.UpsertsTotal.WithLabelValues("error").Inc()
		slog.Error("failed to persist service key", "service", req.ServiceName, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.metrics.UpsertsTotal.WithLabelValues("ok").Inc()
	h.resolver.Invalidate()

	writeData(w, http.StatusOK, &keyResponse{
		ServiceKey: record,
		MaskedKey:  models.MaskedKey(req.APIKey),
	})
}

func verdictLabel(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}

// ListKeys handles GET /api/v1/keys. Secrets are decrypted only to compute
// the masked display form.
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	records, err := h.keys.ListServiceKeys(r.Context())
	if err != nil {
		slog.Error("failed to list service keys", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]*keyResponse, 0, len(records))
	for _, rec := range records {
		masked := "****"
		if plaintext, err := h.secrets.Decrypt(rec.APIKey); err == nil {
			masked = models.MaskedKey(plaintext)
		}
		resp = append(resp, &keyResponse{ServiceKey: rec, MaskedKey: masked})
	}

	writeData(w, http.StatusOK, resp)
}

// DeleteKey handles DELETE /api/v1/keys/{id}. Deletion is explicit admin
// action; nothing deletes records automatically.
func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid key ID")
		return
	}

	if err := h.keys.DeleteServiceKey(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrServiceKeyNotFound) {
			writeError(w, http.StatusNotFound, "service key not found")
			return
		}
		slog.Error("failed to delete service key", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.resolver.Invalidate()
	writeMessage(w, http.StatusOK, "service key deleted")
}

type toggleKeyRequest struct {
	IsActive bool `json:"isActive"`
}

// ToggleKey handles POST /api/v1/keys/{id}/toggle. Active status is
// independent of the primary designation.
func (h *Handler) ToggleKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid key ID")
		return
	}

	var req toggleKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.keys.SetServiceKeyActive(r.Context(), id, req.IsActive)
	if err != nil {
		if errors.Is(err, storage.ErrServiceKeyNotFound) {
			writeError(w, http.StatusNotFound, "service key not found")
			return
		}
		slog.Error("failed to toggle service key", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.resolver.Invalidate()
	writeData(w, http.StatusOK, &keyResponse{ServiceKey: record, MaskedKey: "****"})
}

// ListMappings handles GET /api/v1/mappings.
func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.mappings.ListMappings(r.Context())
	if err != nil {
		slog.Error("failed to list mappings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeData(w, http.StatusOK, mappings)
}

type updateMappingRequest struct {
	PreferredService string  `json:"preferredService"`
	FallbackService  *string `json:"fallbackService,omitempty"`
}

// UpdateMapping handles PUT /api/v1/mappings/{function}. References are soft
// strings; nothing checks them against stored keys here.
func (h *Handler) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	functionName := chi.URLParam(r, "function")
	if functionName == "" {
		writeError(w, http.StatusBadRequest, "function name is required")
		return
	}

	var req updateMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PreferredService == "" {
		writeError(w, http.StatusBadRequest, "preferredService is required")
		return
	}

	mapping, err := h.mappings.UpdateMapping(r.Context(), &models.UpdateMappingInput{
		FunctionName:     functionName,
		PreferredService: req.PreferredService,
		FallbackService:  req.FallbackService,
	})
	if err != nil {
		slog.Error("failed to update mapping", "function", functionName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.resolver.Invalidate()
	writeData(w, http.StatusOK, mapping)
}

type addMappingRequest struct {
	FunctionName     string  `json:"functionName"`
	Category         string  `json:"category"`
	Description      *string `json:"description,omitempty"`
	PreferredService string  `json:"preferredService,omitempty"`
}

// AddMapping handles POST /api/v1/mappings.
func (h *Handler) AddMapping(w http.ResponseWriter, r *http.Request) {
	var req addMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FunctionName == "" {
		writeError(w, http.StatusBadRequest, "functionName is required")
		return
	}
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}

	mapping, err := h.mappings.AddMapping(r.Context(), &models.AddMappingInput{
		FunctionName:     req.FunctionName,
		Category:         req.Category,
		Description:      req.Description,
		PreferredService: req.PreferredService,
	})
	if err != nil {
		if errors.Is(err, storage.ErrMappingExists) {
			writeError(w, http.StatusConflict, "function mapping already exists")
			return
		}
		slog.Error("failed to add mapping", "function", req.FunctionName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeData(w, http.StatusCreated, mapping)
}

// ResolveFunction handles GET /api/v1/functions/{function}/credential. It is
// consumed by the dashboard's generators to obtain a working credential for
// a logical capability.
func (h *Handler) ResolveFunction(w http.ResponseWriter, r *http.Request) {
	functionName := chi.URLParam(r, "function")

	cred, err := h.resolver.Resolve(r.Context(), functionName)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrMappingNotFound):
			h.metrics.ResolutionsTotal.WithLabelValues("unknown_function").Inc()
			writeError(w, http.StatusNotFound, "function mapping not found")
		case errors.Is(err, keyring.ErrNoUsableKey):
			h.metrics.ResolutionsTotal.WithLabelValues("no_usable_key").Inc()
			writeError(w, http.StatusNotFound, "no usable key for function")
		default:
			h.metrics.ResolutionsTotal.WithLabelValues("error").Inc()
			slog.Error("failed to resolve function", "function", functionName, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.metrics.ResolutionsTotal.WithLabelValues("ok").Inc()
	writeData(w, http.StatusOK, cred)
}

// ValidationStats handles GET /api/v1/stats/validations.
func (h *Handler) ValidationStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(w, http.StatusServiceUnavailable, "validation stats not enabled")
		return
	}

	stats, err := h.stats.ListValidationStats(r.Context())
	if err != nil {
		slog.Error("failed to list validation stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeData(w, http.StatusOK, stats)
}

// ExportBackup handles POST /api/v1/admin/backup. The snapshot carries only
// masked key material.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	if h.backup == nil {
		writeError(w, http.StatusServiceUnavailable, "backup export not enabled")
		return
	}

	records, err := h.keys.ListServiceKeys(r.Context())
	if err != nil {
		slog.Error("failed to list keys for backup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	mappings, err := h.mappings.ListMappings(r.Context())
	if err != nil {
		slog.Error("failed to list mappings for backup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	snapshot := &storage.BackupSnapshot{
		ExportedAt: time.Now(),
		Mappings:   mappings,
	}
	for _, rec := range records {
		masked := "****"
		if plaintext, err := h.secrets.Decrypt(rec.APIKey); err == nil {
			masked = models.MaskedKey(plaintext)
		}
		snapshot.Keys = append(snapshot.Keys, storage.BackupKeyRecord{
			ServiceName:   rec.ServiceName,
			Category:      rec.Category,
			MaskedKey:     masked,
			BaseURL:       rec.BaseURL,
			IsPrimary:     rec.IsPrimary,
			IsActive:      rec.IsActive,
			Status:        rec.Status,
			LastValidated: rec.LastValidated,
		})
	}

	objectKey, err := h.backup.Export(r.Context(), snapshot)
	if err != nil {
		slog.Error("backup export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "backup export failed")
		return
	}

	slog.Info("backup exported", "object_key", objectKey, "keys", len(snapshot.Keys))
	writeData(w, http.StatusOK, map[string]string{"object_key": objectKey})
}
