// Package storage re-hosts completed provider videos. Hosted back ends
// serve results from URLs that expire; archiving copies them to storage
// the tenant controls, on local disk or S3.
package storage

import (
	"context"
	"io"
)

// Storage persists one archived object and returns its public URL.
type Storage interface {
	// Save writes data under key and returns the URL it is served from.
	Save(ctx context.Context, key, contentType string, data io.Reader) (url string, err error)
}
