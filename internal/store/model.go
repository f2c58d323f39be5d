// Package store persists tenant-scoped provider configurations. It acts
// as the port the orchestrator reads configs and writes health/usage
// summaries through; provider lifecycle (admin CRUD) also lives here.
package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/avatarlab/avatar-api/internal/provider"
)

// ProviderConfig is one tenant's durable record of a configured back end.
// API key and secret are stored encrypted; they are decrypted only
// transiently when an adapter is constructed.
type ProviderConfig struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`

	Type provider.Type `json:"type"`

	// Encrypted connection credentials (base64 ciphertext).
	APIKeyEncrypted    string `json:"-"`
	APISecretEncrypted string `json:"-"`
	BaseURL            string `json:"base_url,omitempty"`
	WebhookURL         string `json:"webhook_url,omitempty"`

	// Feature support flags.
	SupportsLipSync     bool `json:"supports_lip_sync"`
	SupportsEyeMovement bool `json:"supports_eye_movement"`
	SupportsEmotions    bool `json:"supports_emotions"`
	SupportsBackground  bool `json:"supports_background"`

	// Operating limits.
	MonthlyMinuteQuota int     `json:"monthly_minute_quota,omitempty"`
	CostPerMinute      float64 `json:"cost_per_minute,omitempty"`
	MaxVideoLengthSec  int     `json:"max_video_length_sec,omitempty"`
	MaxResolution      string  `json:"max_resolution,omitempty"`

	// AvgProcessingSec is the observed average processing time, used for
	// speed ranking and completion estimates.
	AvgProcessingSec int `json:"avg_processing_sec,omitempty"`

	// Priority ranks providers under the priority strategy; higher wins.
	Priority int `json:"priority"`

	Active    bool `json:"active"`
	IsDefault bool `json:"is_default"`

	// ExtraConfig carries provider-specific settings as free-form JSON.
	ExtraConfig json.RawMessage `json:"extra_config,omitempty"`

	HealthStatus      provider.HealthStatus `json:"health_status"`
	LastHealthCheckAt time.Time             `json:"last_health_check_at,omitzero"`
	LastUsedAt        time.Time             `json:"last_used_at,omitzero"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SupportsFeatures reports whether this provider covers every feature the
// request asks for.
func (c ProviderConfig) SupportsFeatures(f Filter) bool {
	if f.RequireLipSync && !c.SupportsLipSync {
		return false
	}
	if f.RequireEyeMovement && !c.SupportsEyeMovement {
		return false
	}
	if f.RequireEmotions && !c.SupportsEmotions {
		return false
	}
	if f.RequireBackground && !c.SupportsBackground {
		return false
	}
	return true
}

// ExtraMap decodes ExtraConfig into a map. Returns an empty map when the
// raw config is absent or malformed.
func (c ProviderConfig) ExtraMap() map[string]any {
	if len(c.ExtraConfig) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(c.ExtraConfig, &m); err != nil {
		return map[string]any{}
	}
	return m
}
