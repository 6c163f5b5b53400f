package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/sweetshop-backend/internal/catalog"
	"github.com/angelmondragon/sweetshop-backend/internal/checkout"
	pkgauth "github.com/angelmondragon/sweetshop-backend/pkg/auth"
	"github.com/angelmondragon/sweetshop-backend/pkg/auth/session"
	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

type fakeRedis struct {
	mu      sync.Mutex
	values  map[string]string
	windows map[string]int64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, windows: map[string]int64{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value.(string)
	return nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[scope]++
	return f.windows[scope] <= limit, f.windows[scope], nil
}

func (f *fakeRedis) Ping(context.Context) error { return nil }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubCatalog struct {
	catalog.Service
}

func (stubCatalog) List(context.Context, catalog.ListParams) (*catalog.ListResult, error) {
	return &catalog.ListResult{Items: []catalog.Sweet{{ID: uuid.NewString(), Name: "Kaju Katli"}}}, nil
}

func (stubCatalog) Delete(context.Context, uuid.UUID) error { return nil }

type stubCheckout struct {
	checkout.Service
	submits int
}

func (s *stubCheckout) Quote(context.Context, string) (checkout.Quote, error) {
	return checkout.Quote{PromoState: enums.PromoStateNone}, nil
}

func (s *stubCheckout) ApplyPromo(context.Context, string, string) (checkout.Quote, error) {
	return checkout.Quote{PromoState: enums.PromoStateApplied}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "sweetshop", ExpirationMinutes: 60},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:        time.Minute,
			LoginUsernameLimit: 5,
			LoginIPLimit:       20,
			PromoWindow:        time.Minute,
			PromoSessionLimit:  2,
		},
		Cart:     config.CartConfig{SessionTTL: time.Hour, SessionCookie: "ss_session"},
		Checkout: config.CheckoutConfig{DeliveryFee: 50, IdempotencyTTL: time.Hour},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *fakeRedis, *config.Config) {
	t.Helper()
	cfg := testConfig()
	store := newFakeRedis()
	router := NewRouter(cfg, logger.Nop(), Dependencies{
		DB:       okPinger{},
		Redis:    store,
		Sessions: stubSessions{},
		Metrics:  prometheus.NewRegistry(),
		Catalog:  stubCatalog{},
		Checkout: &stubCheckout{},
	})
	return router, store, cfg
}

func adminToken(t *testing.T, cfg *config.Config, role enums.AdminRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		AdminID:  uuid.New(),
		Username: "admin",
		Role:     role,
		JTI:      session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router, _, _ := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestStorefrontRoutesMintSession(t *testing.T) {
	router, _, _ := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/sweets", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if _, err := uuid.Parse(resp.Header().Get("X-Session-Id")); err != nil {
		t.Fatalf("expected minted session id, got %q", resp.Header().Get("X-Session-Id"))
	}
	if !strings.Contains(resp.Body.String(), "Kaju Katli") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestCheckoutSubmitRequiresIdempotencyKey(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Idempotency-Key") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestPromoApplyIsRateLimitedPerSession(t *testing.T) {
	router, _, cfg := newTestRouter(t)
	sid := uuid.NewString()

	var last int
	for i := 0; i <= cfg.AuthRateLimit.PromoSessionLimit; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/promo", strings.NewReader(`{"code":"FESTIVAL15"}`))
		req.Header.Set("X-Session-Id", sid)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		last = resp.Code
		if i < cfg.AuthRateLimit.PromoSessionLimit && resp.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d: %s", i, resp.Code, resp.Body.String())
		}
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", last)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/v1/sweets", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminDeleteIsOwnerOnly(t *testing.T) {
	router, _, cfg := newTestRouter(t)
	path := "/api/admin/v1/sweets/" + uuid.NewString()

	req := httptest.NewRequest(http.MethodDelete, path, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, cfg, enums.AdminRoleManager))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("manager: expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, path, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, cfg, enums.AdminRoleOwner))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("owner: expected 204 got %d: %s", resp.Code, resp.Body.String())
	}
}
