// Package did implements the photo-to-video provider adapter for the
// D-ID Talks API. Authentication is HTTP Basic from a "user:pass" API key.
package did

// Native D-ID talk statuses.
const (
	statusCreated  = "created"
	statusStarted  = "started"
	statusDone     = "done"
	statusError    = "error"
	statusRejected = "rejected"
)

// talkScript is the speech source: synthesized text or pre-recorded audio.
type talkScript struct {
	Type     string         `json:"type"` // "text" or "audio"
	Input    string         `json:"input,omitempty"`
	AudioURL string         `json:"audio_url,omitempty"`
	Provider *voiceProvider `json:"provider,omitempty"`
}

// voiceProvider selects the TTS voice for text scripts.
type voiceProvider struct {
	Type    string `json:"type"`
	VoiceID string `json:"voice_id"`
}

// talkConfig carries animation and output settings.
type talkConfig struct {
	Stitch       bool     `json:"stitch"`
	ResultFormat string   `json:"result_format,omitempty"`
	Fluent       bool     `json:"fluent,omitempty"`
	Driver       string   `json:"driver_url,omitempty"`
	Expressions  []string `json:"expressions,omitempty"`
}

// talkRequest is the body of POST /talks.
type talkRequest struct {
	SourceURL string     `json:"source_url"`
	Script    talkScript `json:"script"`
	Config    talkConfig `json:"config"`
	Webhook   string     `json:"webhook,omitempty"`
}

// talkResponse is the body of POST /talks and GET /talks/{id}.
type talkResponse struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	ResultURL    string  `json:"result_url,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Error        *struct {
		Kind        string `json:"kind"`
		Description string `json:"description"`
	} `json:"error,omitempty"`
}

// creditsResponse is the body of GET /credits.
type creditsResponse struct {
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}
