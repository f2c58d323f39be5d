// Package provider defines the capability contract shared by all avatar
// video generation back ends. Each adapter translates the canonical request
// and result types here into one provider's wire protocol.
package provider

import "time"

// Type identifies a class of video generation back end.
type Type string

// Known provider types.
const (
	TypePhotoToVideo       Type = "photo_to_video"
	TypeProfessionalAvatar Type = "professional_avatar"
	TypeSelfHostedLipSync  Type = "self_hosted_lipsync"
	TypeCustom             Type = "custom"
)

// IsValid returns true if the type is a known provider type.
func (t Type) IsValid() bool {
	switch t {
	case TypePhotoToVideo, TypeProfessionalAvatar, TypeSelfHostedLipSync, TypeCustom:
		return true
	default:
		return false
	}
}

// JobStatus is the canonical job status every adapter maps its provider's
// native vocabulary onto.
type JobStatus string

// Canonical job statuses.
const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// IsTerminal returns true if the status represents a final state.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// HealthStatus is the coarse, persistable summary of a provider's recent
// reliability.
type HealthStatus string

// Health statuses.
const (
	HealthUnknown  HealthStatus = "unknown"
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
)

// Capability names a feature a provider supports.
type Capability string

// Capabilities adapters may declare.
const (
	CapabilityLipSync      Capability = "lip_sync"
	CapabilityEyeMovement  Capability = "eye_movement"
	CapabilityEmotions     Capability = "emotions"
	CapabilityBackground   Capability = "background"
	CapabilityTextToSpeech Capability = "text_to_speech"
	CapabilityCancellation Capability = "cancellation"
	CapabilityWebhook      Capability = "webhook"
)

// Config is the decrypted, in-memory snapshot of a provider configuration
// an adapter is initialized with. Secrets live here only for the lifetime
// of the adapter instance.
type Config struct {
	// Type is the provider type this config targets.
	Type Type
	// APIKey authenticates against hosted providers. For basic-auth style
	// providers the expected shape is "user:pass".
	APIKey string
	// APISecret is the secondary secret for providers that sign requests.
	APISecret string
	// BaseURL is the API root. Required for self-hosted providers.
	BaseURL string
	// WebhookURL, when set, is passed through to providers that support
	// push notification of job completion.
	WebhookURL string
	// CostPerMinute is the configured price per generated minute. Zero
	// means not configured; adapters fall back to their own heuristic.
	CostPerMinute float64
	// AvgProcessingSec is the operator-observed average processing time,
	// used to estimate completion of async jobs.
	AvgProcessingSec int
	// MaxVideoLengthSec caps the duration this provider accepts.
	MaxVideoLengthSec int
	// MaxResolution is the highest resolution this provider accepts,
	// e.g. "1080p".
	MaxResolution string
	// Extra carries provider-specific settings described by the
	// adapter's ConfigSchema.
	Extra map[string]any
}

// GenerationRequest is the canonical request submitted to an adapter.
// Exactly one of AudioURL and Text must be set.
type GenerationRequest struct {
	// AvatarImageURL points at the source avatar image.
	AvatarImageURL string `json:"avatar_image_url" validate:"required,url"`
	// AudioURL points at pre-recorded speech to lip-sync against.
	AudioURL string `json:"audio_url,omitempty" validate:"omitempty,url"`
	// Text is the script to synthesize when no audio is provided.
	Text string `json:"text,omitempty"`
	// VoiceID selects the TTS voice used with Text.
	VoiceID string `json:"voice_id,omitempty"`
	// DurationSec is the desired video duration in seconds.
	DurationSec float64 `json:"duration_sec,omitempty" validate:"omitempty,gt=0"`
	// Resolution is the desired output resolution, e.g. "720p".
	Resolution string `json:"resolution,omitempty"`
	// Format is the desired container format, e.g. "mp4".
	Format string `json:"format,omitempty"`
	// FPS is the desired frame rate.
	FPS int `json:"fps,omitempty" validate:"omitempty,gt=0"`
	// LipSync enables lip animation.
	LipSync bool `json:"lip_sync"`
	// EyeMovement enables eye animation.
	EyeMovement bool `json:"eye_movement"`
	// Emotions lists emotion cues to animate.
	Emotions []string `json:"emotions,omitempty"`
	// Background selects a background treatment.
	Background string `json:"background,omitempty"`
	// Overrides carries provider-specific request settings.
	Overrides map[string]any `json:"overrides,omitempty"`
	// WebhookURL overrides the configured completion webhook.
	WebhookURL string `json:"webhook_url,omitempty" validate:"omitempty,url"`
	// Metadata is an opaque bag echoed back in results.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HasInput returns true if exactly one of AudioURL and Text is set.
func (r GenerationRequest) HasInput() bool {
	return (r.AudioURL != "") != (r.Text != "")
}

// GenerationResult is the normalized outcome of a generation submission or
// status check.
type GenerationResult struct {
	// Status is the canonical job status.
	Status JobStatus `json:"status"`
	// Provider is the type of the back end that owns the job.
	Provider Type `json:"provider"`
	// JobID is the provider's own job identifier.
	JobID string `json:"job_id"`
	// VideoURL is set when Status is completed.
	VideoURL string `json:"video_url,omitempty"`
	// ThumbnailURL is set when the provider produces one.
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	// DurationSec is the actual duration of the generated video.
	DurationSec float64 `json:"duration_sec,omitempty"`
	// ProcessingTime is how long the provider took to produce the video.
	ProcessingTime time.Duration `json:"processing_time,omitempty"`
	// Cost is the provider-reported cost of the job.
	Cost float64 `json:"cost,omitempty"`
	// CreditsUsed is the provider-reported credit consumption.
	CreditsUsed float64 `json:"credits_used,omitempty"`
	// ErrorMessage is set when Status is failed.
	ErrorMessage string `json:"error_message,omitempty"`
	// ErrorCode is the provider-specific error code when Status is failed.
	ErrorCode string `json:"error_code,omitempty"`
	// Retryable indicates whether a failed job is worth resubmitting.
	Retryable bool `json:"retryable,omitempty"`
	// EstimatedCompletion is when an async job is expected to finish.
	EstimatedCompletion time.Time `json:"estimated_completion,omitzero"`
	// Metadata echoes request metadata plus provider extras.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Health is the fine-grained result of a live health check. The durable
// summary persisted on the provider configuration is the coarse
// HealthStatus only.
type Health struct {
	// Healthy is true when the provider responded and reported no issues.
	Healthy bool `json:"healthy"`
	// Status is the coarse classification of this check.
	Status HealthStatus `json:"status"`
	// ResponseTime is the elapsed time of the check, measured regardless
	// of outcome.
	ResponseTime time.Duration `json:"response_time"`
	// QuotaRemaining and QuotaLimit report usage limits when the provider
	// exposes them. Nil when unknown.
	QuotaRemaining *int `json:"quota_remaining,omitempty"`
	QuotaLimit     *int `json:"quota_limit,omitempty"`
	// QuotaResetAt is when the quota window resets, if known.
	QuotaResetAt *time.Time `json:"quota_reset_at,omitempty"`
	// APIVersion is the provider-reported API version, if any.
	APIVersion string `json:"api_version,omitempty"`
	// Capabilities lists what the provider supports.
	Capabilities []Capability `json:"capabilities,omitempty"`
	// CheckedAt is when the check ran.
	CheckedAt time.Time `json:"checked_at"`
	// Message carries failure detail when the check did not pass.
	Message string `json:"message,omitempty"`
}

// ValidationResult reports the outcome of a local config validation.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ConfigField describes one provider-specific config setting for
// validation and admin UIs.
type ConfigField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// ConfigSchema describes the shape of a provider's Extra config.
type ConfigSchema struct {
	Fields []ConfigField `json:"fields"`
}
