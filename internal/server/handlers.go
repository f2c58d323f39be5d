package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/avatarlab/avatar-api/internal/orchestrator"
	"github.com/avatarlab/avatar-api/internal/provider"
	"github.com/avatarlab/avatar-api/internal/storage"
)

// tenantHeader carries the calling organization's ID. Auth and role
// checks happen upstream; this layer only scopes the orchestrator.
const tenantHeader = "X-Tenant-ID"

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	manager   *orchestrator.Manager
	archiver  *storage.Archiver
	validator *validator.Validate
	logger    *slog.Logger
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithArchiver enables re-hosting of completed videos on status lookups.
func WithArchiver(a *storage.Archiver) HandlerOption {
	return func(h *Handlers) {
		h.archiver = a
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(manager *orchestrator.Manager, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		manager:   manager,
		validator: validator.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// GenerateVideo handles POST /v1/videos requests.
func (h *Handlers) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var req provider.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON", false)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR", false)
		return
	}

	result, err := h.manager.GenerateVideo(r.Context(), tenantID, req)
	if err != nil {
		h.writeDomainError(w, tenantID, err)
		return
	}

	resp := GenerateVideoResponse{
		JobID:    result.JobID,
		Provider: string(result.Provider),
		Status:   string(result.Status),
	}
	if !result.EstimatedCompletion.IsZero() {
		resp.EstimatedCompletion = result.EstimatedCompletion.Format(time.RFC3339)
	}
	h.logger.Info("generation submitted",
		slog.String("tenant_id", tenantID.String()),
		slog.String("provider", resp.Provider),
		slog.String("job_id", resp.JobID),
	)
	writeJSON(w, http.StatusAccepted, resp)
}

// GetJobStatus handles GET /v1/videos/{jobID} requests. An optional
// ?provider= query names the owning back end; without it the lookup is
// best-effort across providers.
func (h *Handlers) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	jobID := r.PathValue("jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID", false)
		return
	}

	providerType, ok := providerQuery(w, r)
	if !ok {
		return
	}

	result, err := h.manager.CheckJobStatus(r.Context(), tenantID, jobID, providerType)
	if err != nil {
		h.writeDomainError(w, tenantID, err)
		return
	}

	// Re-host completed videos so expiring provider URLs stay usable.
	if h.archiver != nil && result.Status == provider.StatusCompleted && result.VideoURL != "" {
		if url, err := h.archiver.ArchiveVideo(r.Context(), jobID, result.VideoURL); err != nil {
			h.logger.Warn("video archival failed",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		} else {
			result.VideoURL = url
		}
	}

	writeJSON(w, http.StatusOK, JobStatusResponse{
		JobID:        result.JobID,
		Provider:     string(result.Provider),
		Status:       string(result.Status),
		VideoURL:     result.VideoURL,
		ThumbnailURL: result.ThumbnailURL,
		DurationSec:  result.DurationSec,
		Error:        result.ErrorMessage,
		ErrorCode:    result.ErrorCode,
		Retryable:    result.Retryable,
	})
}

// CancelJob handles DELETE /v1/videos/{jobID} requests.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	jobID := r.PathValue("jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID", false)
		return
	}

	providerType, ok := providerQuery(w, r)
	if !ok {
		return
	}

	cancelled, err := h.manager.CancelJob(r.Context(), tenantID, jobID, providerType)
	if err != nil {
		h.writeDomainError(w, tenantID, err)
		return
	}
	writeJSON(w, http.StatusOK, CancelJobResponse{Cancelled: cancelled})
}

// EstimateCost handles POST /v1/videos/estimate requests.
func (h *Handlers) EstimateCost(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var req provider.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON", false)
		return
	}

	providerType, ok := providerQuery(w, r)
	if !ok {
		return
	}
	cost, err := h.manager.EstimateCost(r.Context(), tenantID, req, providerType)
	if err != nil {
		h.writeDomainError(w, tenantID, err)
		return
	}
	writeJSON(w, http.StatusOK, EstimateCostResponse{Cost: cost, Provider: string(providerType)})
}

// CheckProviderHealth handles POST /v1/providers/{type}/health-check
// requests, running a live check and persisting the durable summary.
func (h *Handlers) CheckProviderHealth(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	providerType := provider.Type(r.PathValue("type"))
	if !providerType.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown provider type", "UNKNOWN_PROVIDER_TYPE", false)
		return
	}

	health, err := h.manager.CheckProviderHealth(r.Context(), tenantID, providerType)
	if err != nil {
		h.writeDomainError(w, tenantID, err)
		return
	}
	writeJSON(w, http.StatusOK, toProviderHealthResponse(providerType, health))
}

// tenant extracts and parses the tenant header, writing the error
// response itself on failure.
func (h *Handlers) tenant(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(tenantHeader)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "tenant header is required", "MISSING_TENANT", false)
		return uuid.Nil, false
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "tenant header must be a UUID", "INVALID_TENANT", false)
		return uuid.Nil, false
	}
	return tenantID, true
}

// providerQuery extracts the optional ?provider= query value, writing
// the error response itself when the value is not a known type. An
// absent value is valid and means "any provider".
func providerQuery(w http.ResponseWriter, r *http.Request) (provider.Type, bool) {
	raw := r.URL.Query().Get("provider")
	if raw == "" {
		return "", true
	}
	providerType := provider.Type(raw)
	if !providerType.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown provider type", "UNKNOWN_PROVIDER_TYPE", false)
		return "", false
	}
	return providerType, true
}

// writeDomainError maps core errors onto HTTP responses. The one
// invariant protected here: the caller can always tell a permanent
// failure (fix the request) from a transient one (retry later).
func (h *Handlers) writeDomainError(w http.ResponseWriter, tenantID uuid.UUID, err error) {
	switch {
	case errors.Is(err, provider.ErrMissingInput):
		writeError(w, http.StatusBadRequest, err.Error(), "MISSING_INPUT", false)
	case errors.Is(err, provider.ErrNoProviderAvailable):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "NO_PROVIDER_AVAILABLE", false)
	case errors.Is(err, provider.ErrJobNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "JOB_NOT_FOUND", false)
	case errors.Is(err, provider.ErrAllProvidersFailed):
		writeError(w, http.StatusBadGateway, err.Error(), "ALL_PROVIDERS_FAILED", true)
	default:
		var pe *provider.ProviderError
		if errors.As(err, &pe) {
			status := http.StatusBadGateway
			if !pe.Retryable {
				status = http.StatusUnprocessableEntity
			}
			writeError(w, status, pe.Error(), "PROVIDER_ERROR", pe.Retryable)
			return
		}
		var ce *provider.ConfigurationError
		if errors.As(err, &ce) {
			writeError(w, http.StatusConflict, ce.Error(), "PROVIDER_MISCONFIGURED", false)
			return
		}
		h.logger.Error("request failed",
			slog.String("tenant_id", tenantID.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR", true)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string, retryable bool) {
	writeJSON(w, status, ErrorResponse{
		Error:     message,
		Code:      code,
		Retryable: retryable,
	})
}
