package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"outfit-db-api/pkg/apierror"
	"outfit-db-api/pkg/response"
)

// APIKeyHeader carries the shared secret on protected requests.
const APIKeyHeader = "X-API-Key"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	APIKeys []string
	Logger  *zap.Logger
}

// NewAuthMiddleware rejects requests that do not present one of the
// configured keys, before any handler runs. With no keys configured every
// request is rejected.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("auth")

	keys := make([][]byte, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		logger.Warn("no API keys configured, protected endpoints will reject every request")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := extractAPIKey(r)
			if apiKey == "" {
				response.Error(w, apierror.Unauthorized("Authentication required. Use the X-API-Key header."))
				return
			}

			if !isValidKey([]byte(apiKey), keys) {
				logger.Debug("invalid api key",
					zap.String("path", r.URL.Path),
					zap.String("request_id", GetRequestID(r.Context())),
				)
				response.Error(w, apierror.Unauthorized("Invalid API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKey reads X-API-Key, falling back to an Authorization bearer token.
func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// isValidKey compares key against every valid key in constant time.
func isValidKey(key []byte, validKeys [][]byte) bool {
	match := 0
	for _, valid := range validKeys {
		match |= subtle.ConstantTimeCompare(key, valid)
	}
	return match == 1
}
