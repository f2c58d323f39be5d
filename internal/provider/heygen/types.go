// Package heygen implements the professional-avatar provider adapter for
// the HeyGen API. Authentication is a single X-Api-Key header.
package heygen

// Native HeyGen video statuses.
const (
	statusPending    = "pending"
	statusWaiting    = "waiting"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// character is the avatar source for one video input.
type character struct {
	Type            string `json:"type"` // "talking_photo"
	TalkingPhotoURL string `json:"talking_photo_url"`
}

// voice is the speech source: TTS text or pre-recorded audio.
type voice struct {
	Type      string `json:"type"` // "text" or "audio"
	InputText string `json:"input_text,omitempty"`
	VoiceID   string `json:"voice_id,omitempty"`
	AudioURL  string `json:"audio_url,omitempty"`
}

// background selects the scene behind the avatar.
type background struct {
	Type  string `json:"type"` // "color" or "image"
	Value string `json:"value"`
}

// videoInput is one scene of a generate request.
type videoInput struct {
	Character  character   `json:"character"`
	Voice      voice       `json:"voice"`
	Background *background `json:"background,omitempty"`
}

// dimension is the output video size.
type dimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// generateRequest is the body of POST /v2/video/generate.
type generateRequest struct {
	VideoInputs []videoInput `json:"video_inputs"`
	Dimension   *dimension   `json:"dimension,omitempty"`
	CallbackURL string       `json:"callback_url,omitempty"`
}

// generateResponse is the body of POST /v2/video/generate.
type generateResponse struct {
	Error *apiError `json:"error"`
	Data  struct {
		VideoID string `json:"video_id"`
	} `json:"data"`
}

// statusResponse is the body of GET /v1/video_status.get.
type statusResponse struct {
	Code int `json:"code"`
	Data struct {
		ID           string  `json:"id"`
		Status       string  `json:"status"`
		VideoURL     string  `json:"video_url,omitempty"`
		ThumbnailURL string  `json:"thumbnail_url,omitempty"`
		Duration     float64 `json:"duration,omitempty"`
		Error        *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Detail  string `json:"detail"`
		} `json:"error,omitempty"`
	} `json:"data"`
}

// quotaResponse is the body of GET /v2/user/remaining_quota.
type quotaResponse struct {
	Error *apiError `json:"error"`
	Data  struct {
		RemainingQuota int `json:"remaining_quota"`
	} `json:"data"`
}

// apiError is HeyGen's error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
