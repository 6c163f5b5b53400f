package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sweetshop-backend/internal/offers"
)

type stubOffersService struct {
	offers.Service
	all []offers.Offer
}

func (s stubOffersService) List(context.Context, bool) ([]offers.Offer, error) {
	return s.all, nil
}

type stubSource struct {
	live  []offers.Offer
	calls int
}

func (s *stubSource) ListActive(context.Context, time.Time) ([]offers.Offer, error) {
	s.calls++
	return s.live, nil
}

func TestOffersListActiveUsesSource(t *testing.T) {
	source := &stubSource{live: []offers.Offer{{ID: uuid.NewString(), Code: "FESTIVAL15", Discount: 15, IsActive: true}}}
	svc := stubOffersService{all: []offers.Offer{{Code: "FESTIVAL15"}, {Code: "OLD10"}}}
	handler := OffersList(svc, source, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/offers?active=true", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data []offers.Offer `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data) != 1 || source.calls != 1 {
		t.Fatalf("expected one live offer from source, got %d (calls %d)", len(envelope.Data), source.calls)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/offers", nil))
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data) != 2 || source.calls != 1 {
		t.Fatalf("expected full list from service, got %d", len(envelope.Data))
	}
}

func TestOffersListRejectsBadFlag(t *testing.T) {
	handler := OffersList(stubOffersService{}, &stubSource{}, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/offers?active=soon", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
