// Package wav2lip implements the self-hosted lip-sync provider adapter.
// It targets a GPU-backed deployment exposing a small job API; requests
// are authenticated with a short-lived HS256 JWT signed from the
// configured access key and secret.
package wav2lip

// Native job statuses of the self-hosted service.
const (
	statusQueued    = "queued"
	statusRunning   = "running"
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusCancelled = "cancelled"
)

// jobRequest is the body of POST /api/v1/jobs.
type jobRequest struct {
	ImageURL   string `json:"image_url"`
	AudioURL   string `json:"audio_url,omitempty"`
	Text       string `json:"text,omitempty"`
	VoiceID    string `json:"voice_id,omitempty"`
	FPS        int    `json:"fps,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

// jobResponse is the body of POST /api/v1/jobs and GET /api/v1/jobs/{id}.
type jobResponse struct {
	JobID        string  `json:"job_id"`
	Status       string  `json:"status"`
	VideoURL     string  `json:"video_url,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	ElapsedSec   float64 `json:"elapsed_sec,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version,omitempty"`
	QueueDepth int    `json:"queue_depth,omitempty"`
}
