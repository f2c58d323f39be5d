package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarlab/avatar-api/internal/orchestrator"
	"github.com/avatarlab/avatar-api/internal/provider"
	"github.com/avatarlab/avatar-api/internal/secrets"
	"github.com/avatarlab/avatar-api/internal/storage"
	"github.com/avatarlab/avatar-api/internal/store"
)

// stubBackend scripts the behavior of the stub provider for one test.
type stubBackend struct {
	generateErr  error
	statusResult provider.GenerationResult
	statusErr    error
	cancelResult bool
	estimate     float64
	health       provider.Health
}

var _ provider.Provider = (*stubProvider)(nil)

type stubProvider struct {
	typ     provider.Type
	backend *stubBackend
}

func (p *stubProvider) Initialize(cfg provider.Config) error { return nil }

func (p *stubProvider) GenerateVideo(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
	if p.backend.generateErr != nil {
		return provider.GenerationResult{}, p.backend.generateErr
	}
	return provider.GenerationResult{
		Status:   provider.StatusProcessing,
		Provider: p.typ,
		JobID:    "job-1",
	}, nil
}

func (p *stubProvider) CheckJobStatus(ctx context.Context, jobID string) (provider.GenerationResult, error) {
	if p.backend.statusErr != nil {
		return provider.GenerationResult{}, p.backend.statusErr
	}
	result := p.backend.statusResult
	result.Provider = p.typ
	result.JobID = jobID
	return result, nil
}

func (p *stubProvider) CancelJob(ctx context.Context, jobID string) (bool, error) {
	return p.backend.cancelResult, nil
}

func (p *stubProvider) CheckHealth(ctx context.Context) provider.Health {
	return p.backend.health
}

func (p *stubProvider) EstimateCost(req provider.GenerationRequest) (float64, error) {
	return p.backend.estimate, nil
}

func (p *stubProvider) ValidateConfig(cfg provider.Config) provider.ValidationResult {
	return provider.ValidationResult{Valid: true}
}

func (p *stubProvider) Capabilities() []provider.Capability { return nil }
func (p *stubProvider) ConfigSchema() provider.ConfigSchema { return provider.ConfigSchema{} }

type testServer struct {
	router   http.Handler
	tenantID uuid.UUID
	backend  *stubBackend
	store    *store.MemoryStore
}

func newTestServer(t *testing.T, opts ...HandlerOption) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	backend := &stubBackend{
		health: provider.Health{Healthy: true, Status: provider.HealthHealthy},
	}
	registry := provider.NewRegistry()
	registry.Register(provider.TypePhotoToVideo, func() provider.Provider {
		return &stubProvider{typ: provider.TypePhotoToVideo, backend: backend}
	})

	st := store.NewMemoryStore()
	tenantID := uuid.New()
	require.NoError(t, st.Create(t.Context(), &store.ProviderConfig{
		TenantID: tenantID,
		Name:     "did-prod",
		Type:     provider.TypePhotoToVideo,
		Active:   true,
	}))

	manager := orchestrator.NewManager(st, secrets.NoopCodec{}, registry,
		orchestrator.WithMaxRetries(1),
		orchestrator.WithRetryDelay(0),
		orchestrator.WithLogger(logger),
	)
	handlers := NewHandlers(manager, logger, opts...)
	return &testServer{
		router:   NewRouter(handlers, logger, DefaultConfig()),
		tenantID: tenantID,
		backend:  backend,
		store:    st,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(tenantHeader, ts.tenantID.String())
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func generateBody() provider.GenerationRequest {
	return provider.GenerationRequest{
		AvatarImageURL: "https://example.com/face.png",
		AudioURL:       "https://example.com/speech.wav",
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestGenerateVideo_Accepted(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/videos", generateBody())
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp GenerateVideoResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, string(provider.TypePhotoToVideo), resp.Provider)
	assert.Equal(t, string(provider.StatusProcessing), resp.Status)
}

func TestGenerateVideo_MissingTenant(t *testing.T) {
	ts := newTestServer(t)

	raw, _ := json.Marshal(generateBody())
	req := httptest.NewRequest(http.MethodPost, "/v1/videos", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_TENANT", decodeError(t, rec).Code)
}

func TestGenerateVideo_InvalidTenant(t *testing.T) {
	ts := newTestServer(t)

	raw, _ := json.Marshal(generateBody())
	req := httptest.NewRequest(http.MethodPost, "/v1/videos", bytes.NewReader(raw))
	req.Header.Set(tenantHeader, "not-a-uuid")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TENANT", decodeError(t, rec).Code)
}

func TestGenerateVideo_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/videos", bytes.NewReader([]byte("{broken")))
	req.Header.Set(tenantHeader, ts.tenantID.String())
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JSON", decodeError(t, rec).Code)
}

func TestGenerateVideo_ValidationError(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/videos", provider.GenerationRequest{
		AudioURL: "https://example.com/speech.wav",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}

func TestGenerateVideo_MissingInput(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/videos", provider.GenerationRequest{
		AvatarImageURL: "https://example.com/face.png",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "MISSING_INPUT", resp.Code)
	assert.False(t, resp.Retryable)
}

func TestGenerateVideo_NoProviderAvailable(t *testing.T) {
	ts := newTestServer(t)

	// A different tenant has no configured providers.
	raw, _ := json.Marshal(generateBody())
	req := httptest.NewRequest(http.MethodPost, "/v1/videos", bytes.NewReader(raw))
	req.Header.Set(tenantHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NO_PROVIDER_AVAILABLE", decodeError(t, rec).Code)
}

func TestGenerateVideo_AllProvidersFailed(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.generateErr = &provider.ProviderError{
		Provider: provider.TypePhotoToVideo, Code: "503", Retryable: true, Message: "overloaded",
	}

	rec := ts.do(t, http.MethodPost, "/v1/videos", generateBody())
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "ALL_PROVIDERS_FAILED", resp.Code)
	assert.True(t, resp.Retryable, "transient failures must read as retryable")
}

func TestGenerateVideo_NonRetryableProviderError(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.generateErr = &provider.ProviderError{
		Provider: provider.TypePhotoToVideo, Code: "422", Retryable: false, Message: "bad image",
	}

	rec := ts.do(t, http.MethodPost, "/v1/videos", generateBody())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "PROVIDER_ERROR", resp.Code)
	assert.False(t, resp.Retryable)
}

func TestGetJobStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.statusResult = provider.GenerationResult{
		Status:   provider.StatusCompleted,
		VideoURL: "https://cdn.example.com/v.mp4",
	}

	rec := ts.do(t, http.MethodGet, "/v1/videos/job-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp JobStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, string(provider.StatusCompleted), resp.Status)
	assert.Equal(t, "https://cdn.example.com/v.mp4", resp.VideoURL)
}

func TestGetJobStatus_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.statusErr = &provider.ProviderError{
		Provider: provider.TypePhotoToVideo, Code: "404", Message: "unknown talk",
	}

	rec := ts.do(t, http.MethodGet, "/v1/videos/job-ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB_NOT_FOUND", decodeError(t, rec).Code)
}

func TestGetJobStatus_ArchivesCompletedVideo(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("video bytes"))
	}))
	defer origin.Close()

	local, err := storage.NewLocalStorage(t.TempDir(), "https://videos.example.com")
	require.NoError(t, err)

	ts := newTestServer(t, WithArchiver(storage.NewArchiver(local)))
	ts.backend.statusResult = provider.GenerationResult{
		Status:   provider.StatusCompleted,
		VideoURL: origin.URL + "/v.mp4",
	}

	rec := ts.do(t, http.MethodGet, "/v1/videos/job-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp JobStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "https://videos.example.com/videos/job-1.mp4", resp.VideoURL, "completed videos are re-hosted durably")
}

func TestGetJobStatus_InvalidProviderQuery(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/v1/videos/job-1?provider=made_up", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_PROVIDER_TYPE", decodeError(t, rec).Code)
}

func TestCancelJob_InvalidProviderQuery(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodDelete, "/v1/videos/job-1?provider=made_up", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_PROVIDER_TYPE", decodeError(t, rec).Code)
}

func TestEstimateCost_InvalidProviderQuery(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/videos/estimate?provider=made_up", generateBody())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_PROVIDER_TYPE", decodeError(t, rec).Code)
}

func TestCancelJob(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.cancelResult = true

	rec := ts.do(t, http.MethodDelete, "/v1/videos/job-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp CancelJobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Cancelled)
}

func TestCancelJob_NotConfirmed(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodDelete, "/v1/videos/job-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp CancelJobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Cancelled)
}

func TestEstimateCost(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.estimate = 1.5

	rec := ts.do(t, http.MethodPost, "/v1/videos/estimate", generateBody())
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp EstimateCostResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.InDelta(t, 1.5, resp.Cost, 1e-9)
}

func TestCheckProviderHealth(t *testing.T) {
	ts := newTestServer(t)
	remaining := 42
	ts.backend.health = provider.Health{
		Healthy:        true,
		Status:         provider.HealthHealthy,
		QuotaRemaining: &remaining,
	}

	rec := ts.do(t, http.MethodPost, "/v1/providers/photo_to_video/health-check", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ProviderHealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Healthy)
	assert.Equal(t, "photo_to_video", resp.Provider)
	require.NotNil(t, resp.QuotaRemaining)
	assert.Equal(t, 42, *resp.QuotaRemaining)
}

func TestCheckProviderHealth_UnknownType(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/providers/made_up/health-check", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_PROVIDER_TYPE", decodeError(t, rec).Code)
}

func TestCheckProviderHealth_NoConfig(t *testing.T) {
	ts := newTestServer(t)

	// A valid type with no config for this tenant.
	rec := ts.do(t, http.MethodPost, "/v1/providers/professional_avatar/health-check", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NO_PROVIDER_AVAILABLE", decodeError(t, rec).Code)
}
