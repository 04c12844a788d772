package mw

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/pixeld/internal/config"
	"github.com/jmylchreest/pixeld/internal/errors"
)

// KeySet validates bearer keys against the configured static list.
type KeySet struct {
	keys []config.APIKey
}

// NewKeySet copies keys into a KeySet. An empty set disables auth.
func NewKeySet(keys []config.APIKey) *KeySet {
	return &KeySet{keys: slices.Clone(keys)}
}

// Enabled reports whether any key is configured.
func (s *KeySet) Enabled() bool {
	return s != nil && len(s.keys) > 0
}

// Validate returns the key entry matching key.
func (s *KeySet) Validate(key string) (config.APIKey, error) {
	for _, k := range s.keys {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(key)) != 1 {
			continue
		}
		if k.Disabled {
			return config.APIKey{}, errors.InvalidInputf("API key %q is disabled", k.Name)
		}
		return k, nil
	}
	return config.APIKey{}, errors.InvalidInputf("invalid API key")
}

// extractKey reads the Authorization: Bearer header first, then X-API-Key.
func extractKey(header func(string) string) string {
	const bearerPrefix = "Bearer "
	if auth := header("Authorization"); strings.HasPrefix(auth, bearerPrefix) {
		return auth[len(bearerPrefix):]
	}
	return header("X-API-Key")
}

// HumaAuth returns a Huma middleware enforcing API keys on operations that
// declare the apiKeyAuth security scheme.
func HumaAuth(api huma.API, logger *slog.Logger, keys *KeySet) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if !keys.Enabled() || !operationRequiresAuth(ctx.Operation()) {
			next(ctx)
			return
		}

		key := extractKey(ctx.Header)
		if key == "" {
			logger.Warn("API key missing",
				"method", ctx.Method(),
				"path", ctx.URL().Path,
				"remote_addr", ctx.RemoteAddr(),
			)
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "Unauthorized: API key required")
			return
		}

		validKey, err := keys.Validate(key)
		if err != nil {
			logger.Warn("Invalid API key used",
				"key_prefix", keyPrefix(key),
				"error", err,
				"method", ctx.Method(),
				"path", ctx.URL().Path,
			)
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, fmt.Sprintf("Unauthorized: %s", err.Error()))
			return
		}

		logger.Debug("Authenticated API key", "name", validKey.Name, "key_prefix", keyPrefix(key))
		next(ctx)
	}
}

// RawAPIKeyAuth is the Chi equivalent of HumaAuth for handlers that live
// outside Huma, such as the websocket endpoint.
func RawAPIKeyAuth(logger *slog.Logger, keys *KeySet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !keys.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			key := extractKey(r.Header.Get)
			if key == "" {
				logger.Warn("API key missing",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "Unauthorized: API key required", http.StatusUnauthorized)
				return
			}

			validKey, err := keys.Validate(key)
			if err != nil {
				logger.Warn("Invalid API key used",
					"key_prefix", keyPrefix(key),
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, fmt.Sprintf("Unauthorized: %s", err.Error()), http.StatusUnauthorized)
				return
			}

			logger.Debug("Authenticated API key", "name", validKey.Name, "key_prefix", keyPrefix(key))
			next.ServeHTTP(w, r)
		})
	}
}

// operationRequiresAuth reports whether op lists the apiKeyAuth scheme.
func operationRequiresAuth(op *huma.Operation) bool {
	if op == nil {
		return false
	}
	for _, req := range op.Security {
		if _, ok := req[SecurityScheme]; ok {
			return true
		}
	}
	return false
}

// keyPrefix returns the first 4 characters of a key for safe logging.
func keyPrefix(key string) string {
	if len(key) >= 4 {
		return key[:4]
	}
	return key
}
