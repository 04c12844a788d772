package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/jmylchreest/pixeld/internal/config"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests per minute per IP.
	RequestsPerMinute int
}

// RateLimitFromConfig reads the per-IP budget from the API settings.
func RateLimitFromConfig(cfg config.APIConfig) RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: cfg.RateLimit}
}

// RateLimitByIP returns a Chi middleware that rate limits by IP address.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RequestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(cfg.RequestsPerMinute, time.Minute)
}
