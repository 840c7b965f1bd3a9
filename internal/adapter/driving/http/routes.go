package httphandler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"passvault/internal/metrics"
)

// RouterConfig tunes the middleware stack.
type RouterConfig struct {
	AllowedOrigin string
	// RatePerSecond and RateBurst configure the per-client token bucket.
	// Zero values disable rate limiting.
	RatePerSecond float64
	RateBurst     int
}

// NewRouter assembles the sync API router: recovery, logging, CORS, and
// optional rate limiting around the password endpoints, plus the liveness
// probe and the Prometheus scrape endpoint.
func NewRouter(h *Handler, logger *slog.Logger, cfg RouterConfig) *chi.Mux {
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}

	r := chi.NewRouter()
	r.Use(recoveryMiddleware(logger))
	r.Use(loggingMiddleware(logger))
	r.Use(corsMiddleware(cfg.AllowedOrigin))
	if cfg.RatePerSecond > 0 {
		r.Use(newRateLimiter(cfg.RatePerSecond, cfg.RateBurst).middleware)
	}

	r.Get("/health", h.Health)
	r.Method("GET", "/metrics", metrics.Handler())

	r.Route("/passwords", func(r chi.Router) {
		r.Get("/", h.ListPasswords)
		r.Post("/", h.CreatePassword)
		r.Get("/{id}", h.GetPassword)
		r.Put("/{id}", h.UpdatePassword)
		r.Delete("/{id}", h.DeletePassword)
	})

	return r
}
