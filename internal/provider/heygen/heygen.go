package heygen

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

	"github.com/avatarlab/avatar-api/internal/provider"
)

const (
	defaultBaseURL = "https://api.heygen.com"

	requestTimeout = 30 * time.Second

	defaultAvgProcessingSec = 180

	// Cost heuristic when no cost per minute is configured: a base
	// per-minute rate scaled by a resolution multiplier.
	defaultBaseRate    = 2.0
	defaultDurationSec = 30.0
)

// resolutionMultipliers scales the cost heuristic by output resolution.
var resolutionMultipliers = map[string]float64{
	"480p":  0.5,
	"720p":  1.0,
	"1080p": 2.0,
	"4k":    4.0,
}

// dimensions maps resolution names onto pixel sizes.
var dimensions = map[string]dimension{
	"480p":  {Width: 854, Height: 480},
	"720p":  {Width: 1280, Height: 720},
	"1080p": {Width: 1920, Height: 1080},
	"4k":    {Width: 3840, Height: 2160},
}

// Adapter implements provider.Provider against the HeyGen API.
type Adapter struct {
	cfg        provider.Config
	baseURL    string
	httpClient *http.Client
	ready      bool
}

// New creates an uninitialized HeyGen adapter.
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
			Provider: provider.TypeProfessionalAvatar,
			Field:    "api_key",
			Reason:   strings.Join(res.Errors, "; "),
		}
	}
	a.cfg = cfg
	a.baseURL = defaultBaseURL
	if cfg.BaseURL != "" {
		a.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	a.ready = true
	return nil
}

// GenerateVideo submits a talking-photo video and returns a processing
// result with the provider's video ID.
func (a *Adapter) GenerateVideo(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
	if !a.ready {
		return provider.GenerationResult{}, provider.ErrNotInitialized
	}
	if !req.HasInput() {
		return provider.GenerationResult{}, provider.ErrMissingInput
	}

	input := videoInput{
		Character: character{Type: "talking_photo", TalkingPhotoURL: req.AvatarImageURL},
		Voice:     buildVoice(req),
	}
	if req.Background != "" {
		input.Background = &background{Type: "color", Value: req.Background}
	}

	body := generateRequest{VideoInputs: []videoInput{input}}
	if dim, ok := dimensions[strings.ToLower(req.Resolution)]; ok {
		body.Dimension = &dim
	}
	if req.WebhookURL != "" {
		body.CallbackURL = req.WebhookURL
	} else if a.cfg.WebhookURL != "" {
		body.CallbackURL = a.cfg.WebhookURL
	}

	var resp generateResponse
	if err := a.doJSON(ctx, http.MethodPost, "/v2/video/generate", body, &resp); err != nil {
		return provider.GenerationResult{}, err
	}
	if resp.Error != nil {
		return provider.GenerationResult{}, &provider.ProviderError{
			Provider: provider.TypeProfessionalAvatar,
			Code:     resp.Error.Code,
			Message:  resp.Error.Message,
		}
	}
	if resp.Data.VideoID == "" {
		return provider.GenerationResult{}, &provider.ProviderError{
			Provider: provider.TypeProfessionalAvatar,
			Code:     "no_video_id",
			Message:  "submit succeeded but no video id was returned",
		}
	}

	avg := a.cfg.AvgProcessingSec
	if avg <= 0 {
		avg = defaultAvgProcessingSec
	}
	return provider.GenerationResult{
		Status:              provider.StatusProcessing,
		Provider:            provider.TypeProfessionalAvatar,
		JobID:               resp.Data.VideoID,
		EstimatedCompletion: time.Now().Add(time.Duration(avg) * time.Second),
		Metadata:            req.Metadata,
	}, nil
}

// CheckJobStatus fetches a video's status and normalizes it.
func (a *Adapter) CheckJobStatus(ctx context.Context, jobID string) (provider.GenerationResult, error) {
	if !a.ready {
		return provider.GenerationResult{}, provider.ErrNotInitialized
	}

	path := "/v1/video_status.get?video_id=" + url.QueryEscape(jobID)
	var resp statusResponse
	if err := a.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return provider.GenerationResult{}, err
	}

	result := provider.GenerationResult{
		Provider: provider.TypeProfessionalAvatar,
		JobID:    jobID,
	}
	switch resp.Data.Status {
	case statusPending, statusWaiting:
		result.Status = provider.StatusQueued
	case statusCompleted:
		result.Status = provider.StatusCompleted
		result.VideoURL = resp.Data.VideoURL
		result.ThumbnailURL = resp.Data.ThumbnailURL
		result.DurationSec = resp.Data.Duration
	case statusFailed:
		result.Status = provider.StatusFailed
		if resp.Data.Error != nil {
			result.ErrorCode = resp.Data.Error.Code
			result.ErrorMessage = resp.Data.Error.Message
			if resp.Data.Error.Detail != "" {
				result.ErrorMessage += ": " + resp.Data.Error.Detail
			}
		}
	case statusProcessing:
		result.Status = provider.StatusProcessing
	default:
		result.Status = provider.StatusProcessing
	}
	return result, nil
}

// CancelJob is unsupported by the HeyGen API once a video is submitted.
// Best-effort contract: report false without an error.
func (a *Adapter) CancelJob(ctx context.Context, jobID string) (bool, error) {
	if !a.ready {
		return false, provider.ErrNotInitialized
	}
	return false, nil
}

// CheckHealth calls the remaining-quota endpoint and reports quota
// alongside the measured response time.
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

	var quota quotaResponse
	err := a.doJSON(ctx, http.MethodGet, "/v2/user/remaining_quota", nil, &quota)
	health.ResponseTime = time.Since(start)
	if err != nil {
		health.Message = err.Error()
		return health
	}
	if quota.Error != nil {
		health.Message = quota.Error.Message
		return health
	}

	health.Healthy = true
	health.Status = provider.HealthHealthy
	health.QuotaRemaining = &quota.Data.RemainingQuota
	if quota.Data.RemainingQuota == 0 {
		health.Healthy = false
		health.Status = provider.HealthDegraded
		health.Message = "no quota remaining"
	}
	return health
}

// EstimateCost uses the configured cost per minute when present, and the
// resolution-multiplier heuristic otherwise.
func (a *Adapter) EstimateCost(req provider.GenerationRequest) (float64, error) {
	duration := req.DurationSec
	if duration <= 0 {
		duration = defaultDurationSec
	}
	minutes := duration / 60
	if a.cfg.CostPerMinute > 0 {
		return minutes * a.cfg.CostPerMinute, nil
	}

	base := defaultBaseRate
	if v, ok := a.cfg.Extra["base_rate"].(float64); ok && v > 0 {
		base = v
	}
	multiplier := 1.0
	if m, ok := resolutionMultipliers[strings.ToLower(req.Resolution)]; ok {
		multiplier = m
	}
	return minutes * base * multiplier, nil
}

// ValidateConfig requires a non-empty API key.
func (a *Adapter) ValidateConfig(cfg provider.Config) provider.ValidationResult {
	var errs []string
	if cfg.APIKey == "" {
		errs = append(errs, "api_key is required")
	}
	return provider.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Capabilities lists what the HeyGen back end supports.
func (a *Adapter) Capabilities() []provider.Capability {
	return []provider.Capability{
		provider.CapabilityLipSync,
		provider.CapabilityEyeMovement,
		provider.CapabilityEmotions,
		provider.CapabilityBackground,
		provider.CapabilityTextToSpeech,
		provider.CapabilityWebhook,
	}
}

// ConfigSchema describes the provider-specific Extra settings.
func (a *Adapter) ConfigSchema() provider.ConfigSchema {
	return provider.ConfigSchema{
		Fields: []provider.ConfigField{
			{Name: "base_rate", Type: "number", Description: "per-minute rate used when no cost per minute is configured", Default: defaultBaseRate},
			{Name: "default_voice_id", Type: "string", Description: "TTS voice used when the request does not pick one"},
		},
	}
}

// buildVoice selects the audio or text voice form.
func buildVoice(req provider.GenerationRequest) voice {
	if req.AudioURL != "" {
		return voice{Type: "audio", AudioURL: req.AudioURL}
	}
	return voice{Type: "text", InputText: req.Text, VoiceID: req.VoiceID}
}

// doJSON performs one request and decodes a JSON response into out.
func (a *Adapter) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("heygen: marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("heygen: create request: %w", err)
	}
	req.Header.Set("X-Api-Key", a.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return provider.NewTransportError(provider.TypeProfessionalAvatar, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.NewTransportError(provider.TypeProfessionalAvatar, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return provider.NewHTTPError(provider.TypeProfessionalAvatar, resp.StatusCode, respBody)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("heygen: unmarshal response: %w", err)
		}
	}
	return nil
}
