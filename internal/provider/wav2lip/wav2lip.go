package wav2lip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avatarlab/avatar-api/internal/provider"
)

const (
	// Self-hosted GPU back ends can be slow; allow minutes per call.
	requestTimeout = 3 * time.Minute

	defaultAvgProcessingSec = 120

	// tokenTTL bounds the lifetime of a signed request token.
	tokenTTL = 30 * time.Minute
)

// Adapter implements provider.Provider against a self-hosted lip-sync
// deployment.
type Adapter struct {
	cfg        provider.Config
	baseURL    string
	httpClient *http.Client
	ready      bool
}

// New creates an uninitialized self-hosted lip-sync adapter.
func New() *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Compile-time check that Adapter implements provider.Provider.
var _ provider.Provider = (*Adapter)(nil)

// Initialize validates the config and prepares the client.
func (a *Adapter) Initialize(cfg provider.Config) error {
	if res := a.ValidateConfig(cfg); !res.Valid {
		return &provider.ConfigurationError{
			Provider: provider.TypeSelfHostedLipSync,
			Field:    "base_url",
			Reason:   strings.Join(res.Errors, "; "),
		}
	}
	a.cfg = cfg
	a.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	a.ready = true
	return nil
}

// GenerateVideo submits a lip-sync job and returns a processing result
// with the service's job ID.
func (a *Adapter) GenerateVideo(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
	if !a.ready {
		return provider.GenerationResult{}, provider.ErrNotInitialized
	}
	if !req.HasInput() {
		return provider.GenerationResult{}, provider.ErrMissingInput
	}

	body := jobRequest{
		ImageURL:   req.AvatarImageURL,
		AudioURL:   req.AudioURL,
		Text:       req.Text,
		VoiceID:    req.VoiceID,
		FPS:        req.FPS,
		Resolution: req.Resolution,
	}
	if req.WebhookURL != "" {
		body.WebhookURL = req.WebhookURL
	} else if a.cfg.WebhookURL != "" {
		body.WebhookURL = a.cfg.WebhookURL
	}

	var resp jobResponse
	if err := a.doJSON(ctx, http.MethodPost, "/api/v1/jobs", body, &resp); err != nil {
		return provider.GenerationResult{}, err
	}
	if resp.JobID == "" {
		return provider.GenerationResult{}, &provider.ProviderError{
			Provider: provider.TypeSelfHostedLipSync,
			Code:     "no_job_id",
			Message:  "submit succeeded but no job id was returned",
		}
	}

	avg := a.cfg.AvgProcessingSec
	if avg <= 0 {
		avg = defaultAvgProcessingSec
	}
	return provider.GenerationResult{
		Status:              provider.StatusProcessing,
		Provider:            provider.TypeSelfHostedLipSync,
		JobID:               resp.JobID,
		EstimatedCompletion: time.Now().Add(time.Duration(avg) * time.Second),
		Metadata:            req.Metadata,
	}, nil
}

// CheckJobStatus fetches a job and normalizes its status.
func (a *Adapter) CheckJobStatus(ctx context.Context, jobID string) (provider.GenerationResult, error) {
	if !a.ready {
		return provider.GenerationResult{}, provider.ErrNotInitialized
	}

	var resp jobResponse
	if err := a.doJSON(ctx, http.MethodGet, "/api/v1/jobs/"+url.PathEscape(jobID), nil, &resp); err != nil {
		return provider.GenerationResult{}, err
	}

	result := provider.GenerationResult{
		Provider: provider.TypeSelfHostedLipSync,
		JobID:    jobID,
	}
	switch resp.Status {
	case statusQueued:
		result.Status = provider.StatusQueued
	case statusCompleted:
		result.Status = provider.StatusCompleted
		result.VideoURL = resp.VideoURL
		result.ThumbnailURL = resp.ThumbnailURL
		result.DurationSec = resp.Duration
		result.ProcessingTime = time.Duration(resp.ElapsedSec * float64(time.Second))
	case statusFailed:
		result.Status = provider.StatusFailed
		result.ErrorMessage = resp.Error
		result.ErrorCode = statusFailed
		result.Retryable = true
	case statusCancelled:
		result.Status = provider.StatusFailed
		result.ErrorMessage = "job was cancelled"
		result.ErrorCode = statusCancelled
	case statusRunning:
		result.Status = provider.StatusProcessing
	default:
		result.Status = provider.StatusProcessing
	}
	return result, nil
}

// CancelJob deletes a job. Only queued jobs can be cancelled; a running
// job reports false without an error.
func (a *Adapter) CancelJob(ctx context.Context, jobID string) (bool, error) {
	if !a.ready {
		return false, provider.ErrNotInitialized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, a.baseURL+"/api/v1/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return false, fmt.Errorf("wav2lip: create request: %w", err)
	}
	if err := a.setHeaders(req); err != nil {
		return false, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false, provider.NewTransportError(provider.TypeSelfHostedLipSync, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusConflict:
		return false, nil
	default:
		return false, provider.NewHTTPError(provider.TypeSelfHostedLipSync, resp.StatusCode, nil)
	}
}

// CheckHealth calls the liveness endpoint with the measured response time.
func (a *Adapter) CheckHealth(ctx context.Context) provider.Health {
	start := time.Now()
	health := provider.Health{
		Status:       provider.HealthDown,
		Capabilities: a.Capabilities(),
		CheckedAt:    start,
	}
	if !a.ready {
		health.ResponseTime = time.Since(start)
		health.Message = provider.ErrNotInitialized.Error()
		return health
	}

	var resp healthResponse
	err := a.doJSON(ctx, http.MethodGet, "/healthz", nil, &resp)
	health.ResponseTime = time.Since(start)
	if err != nil {
		health.Message = err.Error()
		return health
	}

	health.APIVersion = resp.Version
	if resp.Status != "ok" {
		health.Status = provider.HealthDegraded
		health.Message = "service reported status " + resp.Status
		return health
	}
	health.Healthy = true
	health.Status = provider.HealthHealthy
	return health
}

// EstimateCost is the configured cost per minute when present; a
// self-hosted deployment otherwise has no marginal per-video price.
func (a *Adapter) EstimateCost(req provider.GenerationRequest) (float64, error) {
	if a.cfg.CostPerMinute <= 0 {
		return 0, nil
	}
	duration := req.DurationSec
	if duration <= 0 {
		duration = 30
	}
	return duration / 60 * a.cfg.CostPerMinute, nil
}

// ValidateConfig requires a base URL; when an access key is set, the
// signing secret must be set too.
func (a *Adapter) ValidateConfig(cfg provider.Config) provider.ValidationResult {
	var errs []string
	if cfg.BaseURL == "" {
		errs = append(errs, "base_url is required for self-hosted providers")
	} else if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		errs = append(errs, "base_url must be an http(s) URL")
	}
	if cfg.APIKey != "" && cfg.APISecret == "" {
		errs = append(errs, "api_secret is required when api_key is set")
	}
	return provider.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Capabilities lists what the self-hosted back end supports.
func (a *Adapter) Capabilities() []provider.Capability {
	return []provider.Capability{
		provider.CapabilityLipSync,
		provider.CapabilityTextToSpeech,
		provider.CapabilityCancellation,
		provider.CapabilityWebhook,
	}
}

// ConfigSchema describes the provider-specific Extra settings.
func (a *Adapter) ConfigSchema() provider.ConfigSchema {
	return provider.ConfigSchema{
		Fields: []provider.ConfigField{
			{Name: "enhance_face", Type: "boolean", Description: "run the face enhancement pass on output frames", Default: false},
			{Name: "model", Type: "string", Description: "checkpoint name to run", Default: "wav2lip_gan"},
		},
	}
}

// signToken creates a short-lived HS256 token from the access key and
// secret.
func (a *Adapter) signToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": a.cfg.APIKey,
		"exp": now.Add(tokenTTL).Unix(),
		"nbf": now.Add(-5 * time.Second).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.cfg.APISecret))
	if err != nil {
		return "", fmt.Errorf("wav2lip: sign token: %w", err)
	}
	return signed, nil
}

// doJSON performs one request and decodes a JSON response into out.
func (a *Adapter) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("wav2lip: marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("wav2lip: create request: %w", err)
	}
	if err := a.setHeaders(req); err != nil {
		return err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return provider.NewTransportError(provider.TypeSelfHostedLipSync, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.NewTransportError(provider.TypeSelfHostedLipSync, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return provider.NewHTTPError(provider.TypeSelfHostedLipSync, resp.StatusCode, respBody)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("wav2lip: unmarshal response: %w", err)
		}
	}
	return nil
}

// setHeaders sets content and, when keys are configured, auth headers.
// Open deployments with no access key skip authentication.
func (a *Adapter) setHeaders(req *http.Request) error {
	req.Header.Set("Content-Type", "application/json")
	if a.cfg.APIKey == "" {
		return nil
	}
	token, err := a.signToken()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
