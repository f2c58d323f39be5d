package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Archiver copies a completed provider video to durable storage.
type Archiver struct {
	storage    Storage
	httpClient *http.Client
}

// NewArchiver creates an archiver over a storage back end.
func NewArchiver(st Storage) *Archiver {
	return &Archiver{
		storage: st,
		// Video downloads can be large; allow minutes.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// ArchiveVideo downloads the provider-hosted video and re-hosts it,
// returning the durable URL.
func (a *Archiver) ArchiveVideo(ctx context.Context, jobID, videoURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return "", fmt.Errorf("storage: create download request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: download video: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("storage: download video: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	url, err := a.storage.Save(ctx, "videos/"+jobID+".mp4", contentType, resp.Body)
	if err != nil {
		return "", err
	}
	return url, nil
}
