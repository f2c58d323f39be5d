package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		t     Type
		valid bool
	}{
		{TypePhotoToVideo, true},
		{TypeProfessionalAvatar, true},
		{TypeSelfHostedLipSync, true},
		{TypeCustom, true},
		{Type("unknown"), false},
		{Type(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.t), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.t.IsValid())
		})
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
	}{
		{StatusQueued, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{JobStatus("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestGenerationRequest_HasInput(t *testing.T) {
	tests := []struct {
		name  string
		audio string
		text  string
		want  bool
	}{
		{"audio only", "https://example.com/a.wav", "", true},
		{"text only", "", "hello there", true},
		{"neither", "", "", false},
		{"both", "https://example.com/a.wav", "hello there", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := GenerationRequest{
				AvatarImageURL: "https://example.com/face.png",
				AudioURL:       tt.audio,
				Text:           tt.text,
			}
			assert.Equal(t, tt.want, req.HasInput())
		})
	}
}
