// Package server provides the HTTP surface over the orchestration core.
// It includes handlers, middleware, routes, and DTOs separated from
// domain types.
package server

import "github.com/avatarlab/avatar-api/internal/provider"

// GenerateVideoResponse is the HTTP response after submitting a
// generation request.
type GenerateVideoResponse struct {
	// JobID is the provider's job identifier.
	JobID string `json:"job_id"`
	// Provider is the back end the job was routed to.
	Provider string `json:"provider"`
	// Status is the normalized job status.
	Status string `json:"status"`
	// EstimatedCompletion is when the job is expected to finish, RFC 3339.
	EstimatedCompletion string `json:"estimated_completion,omitempty"`
}

// JobStatusResponse is the HTTP response for a job status lookup.
type JobStatusResponse struct {
	JobID        string  `json:"job_id"`
	Provider     string  `json:"provider"`
	Status       string  `json:"status"`
	VideoURL     string  `json:"video_url,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	DurationSec  float64 `json:"duration_sec,omitempty"`
	Error        string  `json:"error,omitempty"`
	ErrorCode    string  `json:"error_code,omitempty"`
	Retryable    bool    `json:"retryable,omitempty"`
}

// CancelJobResponse is the HTTP response for a cancellation request.
type CancelJobResponse struct {
	// Cancelled is true when some provider confirmed the cancellation.
	Cancelled bool `json:"cancelled"`
}

// EstimateCostResponse is the HTTP response for a cost estimate.
type EstimateCostResponse struct {
	// Cost is the estimated cost; the cheapest across providers when no
	// provider was named.
	Cost float64 `json:"cost"`
	// Provider echoes the provider the estimate is for, if one was named.
	Provider string `json:"provider,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
	// Retryable tells the caller whether retrying later may succeed.
	Retryable bool `json:"retryable"`
}

// HealthResponse is the HTTP response for the service health endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

// ProviderHealthResponse is the HTTP response for a provider health check.
type ProviderHealthResponse struct {
	Provider       string `json:"provider"`
	Healthy        bool   `json:"healthy"`
	Status         string `json:"status"`
	ResponseTimeMS int64  `json:"response_time_ms"`
	QuotaRemaining *int   `json:"quota_remaining,omitempty"`
	QuotaLimit     *int   `json:"quota_limit,omitempty"`
	Message        string `json:"message,omitempty"`
}

// toProviderHealthResponse maps domain health onto the DTO.
func toProviderHealthResponse(t provider.Type, h provider.Health) ProviderHealthResponse {
	return ProviderHealthResponse{
		Provider:       string(t),
		Healthy:        h.Healthy,
		Status:         string(h.Status),
		ResponseTimeMS: h.ResponseTime.Milliseconds(),
		QuotaRemaining: h.QuotaRemaining,
		QuotaLimit:     h.QuotaLimit,
		Message:        h.Message,
	}
}
