package did

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/avatarlab/avatar-api/internal/provider"
)

const (
	defaultBaseURL = "https://api.d-id.com"

	// Hosted API: tens of seconds is enough for submit/status calls.
	requestTimeout = 30 * time.Second

	// defaultAvgProcessingSec estimates completion when the operator has
	// not recorded an observed average.
	defaultAvgProcessingSec = 60

	// Cost heuristic when no cost per minute is configured: one credit
	// per started 15-second block, at the published pay-as-you-go rate.
	creditBlockSec     = 15.0
	defaultCreditPrice = 0.3

	// defaultDurationSec is assumed when the request does not state one.
	defaultDurationSec = 30.0
)

// Adapter implements provider.Provider against the D-ID Talks API.
type Adapter struct {
	cfg        provider.Config
	baseURL    string
	authHeader string
	httpClient *http.Client
	ready      bool
}

// New creates an uninitialized D-ID adapter.
func New() *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Compile-time check that Adapter implements provider.Provider.
var _ provider.Provider = (*Adapter)(nil)

// Initialize validates the config and prepares the authenticated client.
func (a *Adapter) Initialize(cfg provider.Config) error {
	if res := a.ValidateConfig(cfg); !res.Valid {
		return &provider.ConfigurationError{
			Provider: provider.TypePhotoToVideo,
			Field:    "api_key",
			Reason:   strings.Join(res.Errors, "; "),
		}
	}
	a.cfg = cfg
	a.baseURL = defaultBaseURL
	if cfg.BaseURL != "" {
		a.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	a.authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.APIKey))
	a.ready = true
	return nil
}

// GenerateVideo submits a talk and returns a processing result with the
// provider's job ID.
func (a *Adapter) GenerateVideo(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
	if !a.ready {
		return provider.GenerationResult{}, provider.ErrNotInitialized
	}
	if !req.HasInput() {
		return provider.GenerationResult{}, provider.ErrMissingInput
	}

	body := talkRequest{
		SourceURL: req.AvatarImageURL,
		Script:    buildScript(req),
		Config: talkConfig{
			Stitch:       true,
			ResultFormat: req.Format,
			Fluent:       req.EyeMovement,
			Expressions:  req.Emotions,
		},
	}
	if req.WebhookURL != "" {
		body.Webhook = req.WebhookURL
	} else if a.cfg.WebhookURL != "" {
		body.Webhook = a.cfg.WebhookURL
	}

	var resp talkResponse
	if err := a.doJSON(ctx, http.MethodPost, "/talks", body, &resp); err != nil {
		return provider.GenerationResult{}, err
	}
	if resp.ID == "" {
		return provider.GenerationResult{}, &provider.ProviderError{
			Provider: provider.TypePhotoToVideo,
			Code:     "no_talk_id",
			Message:  "submit succeeded but no talk id was returned",
		}
	}

	// Rare synchronous completion: the talk already carries a result URL.
	if resp.ResultURL != "" {
		return a.toResult(resp, req.Metadata), nil
	}

	avg := a.cfg.AvgProcessingSec
	if avg <= 0 {
		avg = defaultAvgProcessingSec
	}
	return provider.GenerationResult{
		Status:              provider.StatusProcessing,
		Provider:            provider.TypePhotoToVideo,
		JobID:               resp.ID,
		EstimatedCompletion: time.Now().Add(time.Duration(avg) * time.Second),
		Metadata:            req.Metadata,
	}, nil
}

// CheckJobStatus fetches a talk and normalizes its status.
func (a *Adapter) CheckJobStatus(ctx context.Context, jobID string) (provider.GenerationResult, error) {
	if !a.ready {
		return provider.GenerationResult{}, provider.ErrNotInitialized
	}

	var resp talkResponse
	if err := a.doJSON(ctx, http.MethodGet, "/talks/"+jobID, nil, &resp); err != nil {
		return provider.GenerationResult{}, err
	}
	return a.toResult(resp, nil), nil
}

// CancelJob deletes a talk. Returns false without error when the talk is
// unknown or can no longer be deleted.
func (a *Adapter) CancelJob(ctx context.Context, jobID string) (bool, error) {
	if !a.ready {
		return false, provider.ErrNotInitialized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, a.baseURL+"/talks/"+jobID, nil)
	if err != nil {
		return false, fmt.Errorf("did: create request: %w", err)
	}
	a.setHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false, provider.NewTransportError(provider.TypePhotoToVideo, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusConflict:
		return false, nil
	default:
		return false, provider.NewHTTPError(provider.TypePhotoToVideo, resp.StatusCode, nil)
	}
}

// CheckHealth calls the credits endpoint and reports quota alongside the
// measured response time.
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

	var credits creditsResponse
	err := a.doJSON(ctx, http.MethodGet, "/credits", nil, &credits)
	health.ResponseTime = time.Since(start)
	if err != nil {
		health.Message = err.Error()
		return health
	}

	health.Healthy = true
	health.Status = provider.HealthHealthy
	health.QuotaRemaining = &credits.Remaining
	health.QuotaLimit = &credits.Total
	if credits.Remaining == 0 {
		health.Healthy = false
		health.Status = provider.HealthDegraded
		health.Message = "no credits remaining"
	}
	return health
}

// EstimateCost uses the configured cost per minute when present, and the
// per-15-second credit heuristic otherwise.
func (a *Adapter) EstimateCost(req provider.GenerationRequest) (float64, error) {
	duration := req.DurationSec
	if duration <= 0 {
		duration = defaultDurationSec
	}
	if a.cfg.CostPerMinute > 0 {
		return duration / 60 * a.cfg.CostPerMinute, nil
	}

	creditPrice := defaultCreditPrice
	if v, ok := a.cfg.Extra["credit_price"].(float64); ok && v > 0 {
		creditPrice = v
	}
	blocks := math.Ceil(duration / creditBlockSec)
	return blocks * creditPrice, nil
}

// ValidateConfig requires a Basic-auth shaped "user:pass" API key.
func (a *Adapter) ValidateConfig(cfg provider.Config) provider.ValidationResult {
	var errs []string
	if cfg.APIKey == "" {
		errs = append(errs, "api_key is required")
	} else if !strings.Contains(cfg.APIKey, ":") {
		errs = append(errs, `api_key must be in "user:pass" form`)
	}
	return provider.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Capabilities lists what the D-ID back end supports.
func (a *Adapter) Capabilities() []provider.Capability {
	return []provider.Capability{
		provider.CapabilityLipSync,
		provider.CapabilityEyeMovement,
		provider.CapabilityEmotions,
		provider.CapabilityTextToSpeech,
		provider.CapabilityCancellation,
		provider.CapabilityWebhook,
	}
}

// ConfigSchema describes the provider-specific Extra settings.
func (a *Adapter) ConfigSchema() provider.ConfigSchema {
	return provider.ConfigSchema{
		Fields: []provider.ConfigField{
			{Name: "credit_price", Type: "number", Description: "price per talk credit used when no cost per minute is configured", Default: defaultCreditPrice},
			{Name: "voice_provider", Type: "string", Description: "TTS engine for text scripts", Default: "microsoft"},
		},
	}
}

// toResult maps a talk onto the canonical result. Unknown native statuses
// map to processing so a live job is never dropped.
func (a *Adapter) toResult(resp talkResponse, metadata map[string]string) provider.GenerationResult {
	result := provider.GenerationResult{
		Provider: provider.TypePhotoToVideo,
		JobID:    resp.ID,
		Metadata: metadata,
	}

	switch resp.Status {
	case statusCreated:
		result.Status = provider.StatusQueued
	case statusDone:
		result.Status = provider.StatusCompleted
		result.VideoURL = resp.ResultURL
		result.ThumbnailURL = resp.ThumbnailURL
		result.DurationSec = resp.Duration
	case statusError, statusRejected:
		result.Status = provider.StatusFailed
		result.ErrorCode = resp.Status
		result.Retryable = resp.Status == statusError
		if resp.Error != nil {
			result.ErrorMessage = resp.Error.Description
			result.ErrorCode = resp.Error.Kind
		}
	case statusStarted:
		result.Status = provider.StatusProcessing
	default:
		result.Status = provider.StatusProcessing
	}
	return result
}

// buildScript selects the audio or text script form.
func buildScript(req provider.GenerationRequest) talkScript {
	if req.AudioURL != "" {
		return talkScript{Type: "audio", AudioURL: req.AudioURL}
	}
	script := talkScript{Type: "text", Input: req.Text}
	if req.VoiceID != "" {
		script.Provider = &voiceProvider{Type: "microsoft", VoiceID: req.VoiceID}
	}
	return script
}

// doJSON performs one request and decodes a JSON response into out.
func (a *Adapter) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("did: marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("did: create request: %w", err)
	}
	a.setHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return provider.NewTransportError(provider.TypePhotoToVideo, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.NewTransportError(provider.TypePhotoToVideo, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return provider.NewHTTPError(provider.TypePhotoToVideo, resp.StatusCode, respBody)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("did: unmarshal response: %w", err)
		}
	}
	return nil
}

// setHeaders sets auth and content headers.
func (a *Adapter) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", a.authHeader)
	req.Header.Set("Content-Type", "application/json")
}
