package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/sweetshop-backend/api/responses"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

// maxPeekBytes bounds how much of a login body is buffered to find the username.
const maxPeekBytes = 64 << 10

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles a credential endpoint by client IP and by
// the username in the request body. A zero limit disables that counter.
type AuthRateLimitPolicy struct {
	name          string
	window        time.Duration
	ipLimit       int
	usernameLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, usernameLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, usernameLimit: usernameLimit}
}

// bucket is one counter a request is charged against.
type bucket struct {
	scope string
	limit int
	log   map[string]any
}

// bucketFunc derives a bucket from the request. ok=false skips the counter.
type bucketFunc func(r *http.Request) (b bucket, ok bool, err error)

// AuthRateLimit enforces the policy's IP and username counters.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	var buckets []bucketFunc
	if policy.ipLimit > 0 {
		buckets = append(buckets, func(r *http.Request) (bucket, bool, error) {
			ip := clientIP(r)
			return bucket{
				scope: "ip:" + policy.name + ":" + ip,
				limit: policy.ipLimit,
				log:   map[string]any{"scope": "ip", "ip": ip},
			}, ip != "", nil
		})
	}
	if policy.usernameLimit > 0 {
		buckets = append(buckets, func(r *http.Request) (bucket, bool, error) {
			username, err := peekUsername(r)
			if err != nil || username == "" {
				return bucket{}, false, err
			}
			hash := hashValue(username)
			return bucket{
				scope: "username:" + policy.name + ":" + hash,
				limit: policy.usernameLimit,
				log:   map[string]any{"scope": "username", "username_hash": hash},
			}, true, nil
		})
	}
	return rateLimit(policy.name, policy.window, store, logg, buckets...)
}

// SessionRateLimit caps how often one shopper session may hit a route.
// Requests without a session pass through untouched.
func SessionRateLimit(name string, window time.Duration, limit int, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	if limit <= 0 {
		return rateLimit(name, window, store, logg)
	}
	return rateLimit(name, window, store, logg, func(r *http.Request) (bucket, bool, error) {
		sessionID := SessionIDFromContext(r.Context())
		return bucket{
			scope: "session:" + name + ":" + sessionID,
			limit: limit,
			log:   map[string]any{"scope": "session"},
		}, sessionID != "", nil
	})
}

func rateLimit(name string, window time.Duration, store rateLimiterStore, logg *logger.Logger, buckets ...bucketFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if window <= 0 || store == nil || len(buckets) == 0 {
			return next
		}
		retryAfter := strconv.Itoa(max(1, int(window.Seconds())))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, derive := range buckets {
				b, ok, err := derive(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				if !ok {
					continue
				}
				allowed, count, err := store.FixedWindowAllow(ctx, b.scope, int64(b.limit), window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if allowed {
					continue
				}
				if logg != nil {
					fields := map[string]any{
						"policy":         name,
						"attempts":       count,
						"limit":          b.limit,
						"window_seconds": int(window.Seconds()),
					}
					for k, v := range b.log {
						fields[k] = v
					}
					logg.Warn(logg.WithFields(ctx, fields), "rate_limit.blocked")
				}
				w.Header().Set("Retry-After", retryAfter)
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peekUsername reads the JSON "username" field and restores the body for the
// next handler. Oversized or non-JSON bodies yield no username.
func peekUsername(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes+1))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))
	if len(body) > maxPeekBytes {
		return "", nil
	}
	var payload struct {
		Username string `json:"username"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(payload.Username)), nil
}

// clientIP prefers the first parseable X-Forwarded-For hop, then X-Real-IP,
// then the socket peer.
func clientIP(r *http.Request) string {
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if addr, err := netip.ParseAddr(strings.TrimSpace(hop)); err == nil {
			return addr.Unmap().String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
