package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var devOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS lets the storefront and admin frontends call the API from the
// browser. Origins may use go-chi/cors wildcards ("https://*.example.com").
// A bare "*" disables credentials, since browsers reject credentialed
// responses with a wildcard origin and the session cookie would be dropped.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := normalizeOrigins(origins)
	if len(allowed) == 0 {
		allowed = devOrigins
	}
	credentials := true
	for _, o := range allowed {
		if o == "*" {
			credentials = false
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader, SessionHeader},
		ExposedHeaders:   []string{SessionHeader, requestIDHeader, replayedHeader},
		AllowCredentials: credentials,
		MaxAge:           600,
	})
}

func normalizeOrigins(origins []string) []string {
	seen := make(map[string]struct{}, len(origins))
	out := make([]string, 0, len(origins))
	for _, raw := range origins {
		// envconfig splits on commas only, so "a, b" leaves stray spaces.
		o := strings.TrimRight(strings.TrimSpace(raw), "/")
		if o == "" {
			continue
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	return out
}
