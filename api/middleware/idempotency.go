package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/sweetshop-backend/api/responses"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/sweetshop-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour

	// inflightTTL bounds how long a crashed request can block its key.
	inflightTTL = time.Minute
)

type idempotencyRule struct {
	method   string
	path     string
	ttl      time.Duration
	critical bool
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, path: "/api/admin/v1/sweets", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, path: "/api/admin/v1/offers", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, path: "/api/v1/checkout", ttl: criticalIdempotencyTTL, critical: true},
}

// idempotencyRecord is stored under the key. A pending record marks a request
// that is still executing; concurrent duplicates are turned away instead of
// running the handler twice.
type idempotencyRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the routes listed in idempotencyRules. criticalTTL overrides the retention
// of critical routes (checkout) when positive. Only 2xx responses are kept,
// so a failed submission can be retried with the same key.
func Idempotency(store pkgredis.IdempotencyStore, criticalTTL time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, routePattern(r), criticalTTL)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := requestHash(body)
			key := store.IdempotencyKey(buildScope(r), clientKey)

			existing, err := claim(ctx, store, key, hash)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if existing != nil {
				replay(w, existing)
				return
			}

			// Writes below must survive a client disconnect.
			bg := context.WithoutCancel(ctx)
			done := false
			defer func() {
				if !done {
					// handler panicked; free the key while the panic unwinds
					_ = store.Del(bg, key)
				}
			}()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			var captured bytes.Buffer
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)
			done = true

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status < 200 || status >= 300 {
				if err := store.Del(bg, key); err != nil {
					logFailure(ctx, logg, "release idempotency key", err)
				}
				return
			}
			record, err := json.Marshal(idempotencyRecord{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
				RequestHash: hash,
			})
			if err == nil {
				err = store.Set(bg, key, string(record), ttl)
			}
			if err != nil {
				logFailure(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

// claim takes the key for this request by writing a pending marker. It
// returns the stored record when an earlier request already completed.
func claim(ctx context.Context, store pkgredis.IdempotencyStore, key, hash string) (*idempotencyRecord, error) {
	marker, err := json.Marshal(idempotencyRecord{Pending: true, RequestHash: hash})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency marker")
	}
	inProgress := pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress").
		WithReason("IN_PROGRESS")

	// a second pass covers a marker that expired between SetNX and Get
	for range 2 {
		ok, err := store.SetNX(ctx, key, string(marker), inflightTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key")
		}
		if ok {
			return nil, nil
		}
		raw, err := store.Get(ctx, key)
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
		}
		var record idempotencyRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
		}
		switch {
		case record.RequestHash != hash:
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body").
				WithReason("BODY_MISMATCH")
		case record.Pending:
			return nil, inProgress
		}
		return &record, nil
	}
	return nil, inProgress
}

func replay(w http.ResponseWriter, record *idempotencyRecord) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

// buildScope keeps keys from colliding across admins, shoppers and routes.
func buildScope(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{AdminIDFromContext(ctx), SessionIDFromContext(ctx), r.Method, r.URL.Path}, "|")
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// routePattern falls back to the raw path while chi is still inside a
// mounted sub-router and only knows a wildcard prefix.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return strings.TrimSuffix(pattern, "/")
		}
	}
	return strings.TrimSuffix(r.URL.Path, "/")
}

func routeTTL(method, pattern string, criticalTTL time.Duration) (time.Duration, bool) {
	for _, rule := range idempotencyRules {
		if rule.method != method || rule.path != pattern {
			continue
		}
		if rule.critical && criticalTTL > 0 {
			return criticalTTL, true
		}
		return rule.ttl, true
	}
	return 0, false
}

func logFailure(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg != nil {
		logg.Error(ctx, msg, err)
	}
}
