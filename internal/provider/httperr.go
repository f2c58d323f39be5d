package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// maxErrorBody bounds how much of a provider error body is kept in the
// error message.
const maxErrorBody = 512

// NewHTTPError classifies a non-2xx provider response. 5xx and 429 are
// retryable; everything else (validation, auth, not-found) is not.
func NewHTTPError(t Type, status int, body []byte) *ProviderError {
	msg := string(body)
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	retryable := status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
	return &ProviderError{
		Provider:  t,
		Code:      strconv.Itoa(status),
		Message:   fmt.Sprintf("request failed with status %d: %s", status, msg),
		Retryable: retryable,
	}
}

// NewTransportError classifies a failure to reach the provider at all.
// Timeouts and connection errors are retryable; a caller-cancelled
// context is not.
func NewTransportError(t Type, err error) *ProviderError {
	retryable := !errors.Is(err, context.Canceled)
	return &ProviderError{
		Provider:  t,
		Code:      "transport",
		Message:   err.Error(),
		Retryable: retryable,
		Err:       err,
	}
}
