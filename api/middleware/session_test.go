package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func serveSession(t *testing.T, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var seen string
	handler := ShopperSession(SessionOptions{CookieName: "ss_session", TTL: time.Hour}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return seen, rec
}

func TestShopperSessionPrefersCookie(t *testing.T) {
	cookieID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "ss_session", Value: cookieID})
	req.Header.Set(SessionHeader, uuid.NewString())

	seen, rec := serveSession(t, req)
	if seen != cookieID {
		t.Fatalf("expected cookie session %s got %s", cookieID, seen)
	}
	if rec.Header().Get(SessionHeader) != cookieID {
		t.Fatalf("expected session header echoed")
	}
}

func TestShopperSessionFallsBackToHeader(t *testing.T) {
	headerID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionHeader, headerID)

	seen, rec := serveSession(t, req)
	if seen != headerID {
		t.Fatalf("expected header session %s got %s", headerID, seen)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != headerID || cookies[0].MaxAge != 3600 || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookie %+v", cookies)
	}
}

func TestShopperSessionMintsWhenMissingOrInvalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "ss_session", Value: "not-a-uuid"})

	seen, _ := serveSession(t, req)
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected fresh uuid session, got %q", seen)
	}
	if seen == "not-a-uuid" {
		t.Fatalf("invalid cookie value should be replaced")
	}
}
