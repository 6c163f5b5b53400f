package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

const (
	SessionHeader        = "X-Session-Id"
	defaultSessionCookie = "ss_session"
)

// SessionOptions configures how the shopper session is carried.
type SessionOptions struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// ShopperSession resolves the shopper session from the cookie, then the
// X-Session-Id header, and mints a new one when neither holds a valid UUID.
// The resolved id is echoed back in both the cookie and the header.
func ShopperSession(opts SessionOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	name := strings.TrimSpace(opts.CookieName)
	if name == "" {
		name = defaultSessionCookie
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := resolveSessionID(r, name)
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			cookie := &http.Cookie{
				Name:     name,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				Secure:   opts.Secure,
				SameSite: http.SameSiteLaxMode,
			}
			if opts.TTL > 0 {
				cookie.MaxAge = int(opts.TTL.Seconds())
			}
			http.SetCookie(w, cookie)
			w.Header().Set(SessionHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveSessionID(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil {
		if id := validSessionID(c.Value); id != "" {
			return id
		}
	}
	return validSessionID(r.Header.Get(SessionHeader))
}

func validSessionID(raw string) string {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || parsed == uuid.Nil {
		return ""
	}
	return parsed.String()
}
