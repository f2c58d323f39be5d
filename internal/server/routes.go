package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /v1/videos", h.GenerateVideo)
	mux.HandleFunc("POST /v1/videos/estimate", h.EstimateCost)
	mux.HandleFunc("GET /v1/videos/{jobID}", h.GetJobStatus)
	mux.HandleFunc("DELETE /v1/videos/{jobID}", h.CancelJob)
	mux.HandleFunc("POST /v1/providers/{type}/health-check", h.CheckProviderHealth)

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
