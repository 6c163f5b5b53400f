package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

type stubCart struct {
	added   []cart.AddItemInput
	removed [][2]string
	cleared int
	result  cart.Cart
	err     error
}

func (s *stubCart) Get(context.Context, string) (cart.Cart, error) { return cart.Cart{}, nil }

func (s *stubCart) AddItem(_ context.Context, _ string, input cart.AddItemInput) (cart.Cart, error) {
	s.added = append(s.added, input)
	return s.result, s.err
}

func (s *stubCart) UpdateQuantity(context.Context, string, cart.UpdateQuantityInput) (cart.Cart, error) {
	return cart.Cart{}, s.err
}

func (s *stubCart) RemoveItem(_ context.Context, _ string, productID, size string) (cart.Cart, error) {
	s.removed = append(s.removed, [2]string{productID, size})
	return cart.Cart{}, s.err
}

func (s *stubCart) Clear(context.Context, string) error {
	s.cleared++
	return s.err
}

func TestCartAddItemReturnsQuote(t *testing.T) {
	carts := &stubCart{}
	handlers := CartHandlers{Cart: carts, Checkout: &stubCheckout{quote: appliedQuote()}}

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":"gulab","size":"500g","quantity":2}`)), "sess-1")
	resp := httptest.NewRecorder()
	handlers.AddItem().ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(carts.added) != 1 || carts.added[0].Quantity != 2 {
		t.Fatalf("unexpected add calls %+v", carts.added)
	}
	if !strings.Contains(resp.Body.String(), `"total":302`) {
		t.Fatalf("expected totals in body, got %s", resp.Body.String())
	}
}

func TestCartAddItemRejectsZeroQuantity(t *testing.T) {
	carts := &stubCart{}
	handlers := CartHandlers{Cart: carts, Checkout: &stubCheckout{}}

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":"gulab","size":"500g","quantity":0}`)), "sess-1")
	resp := httptest.NewRecorder()
	handlers.AddItem().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(carts.added) != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestCartAddItemRejectsQuantityAboveMax(t *testing.T) {
	carts := &stubCart{}
	handlers := CartHandlers{Cart: carts, Checkout: &stubCheckout{}}

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":"gulab","size":"500g","quantity":1000}`)), "sess-1")
	resp := httptest.NewRecorder()
	handlers.AddItem().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(carts.added) != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestCartAddItemStoredWhenPricingFails(t *testing.T) {
	stored := cart.New([]cart.LineItem{{ProductID: "gulab", Size: "500g", Quantity: 2, UnitPrice: 160, Name: "Gulab Jamun"}})
	carts := &stubCart{result: stored}
	handlers := CartHandlers{
		Cart:     carts,
		Checkout: &stubCheckout{quoteErr: pkgerrors.New(pkgerrors.CodeDependency, "redis down")},
		Logger:   logger.Nop(),
	}

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":"gulab","size":"500g","quantity":2}`)), "sess-1")
	resp := httptest.NewRecorder()
	handlers.AddItem().ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	body := resp.Body.String()
	if !strings.Contains(body, `"totals_pending":true`) || !strings.Contains(body, `"item_count":2`) {
		t.Fatalf("expected stored lines with pending totals, got %s", body)
	}
}

func TestCartRemoveItemUsesQuery(t *testing.T) {
	carts := &stubCart{}
	handlers := CartHandlers{Cart: carts, Checkout: &stubCheckout{}}

	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items?product_id=jalebi&size=250g", nil), "sess-1")
	resp := httptest.NewRecorder()
	handlers.RemoveItem().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(carts.removed) != 1 || carts.removed[0] != [2]string{"jalebi", "250g"} {
		t.Fatalf("unexpected remove calls %+v", carts.removed)
	}

	missing := withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items?product_id=jalebi", nil), "sess-1")
	resp = httptest.NewRecorder()
	handlers.RemoveItem().ServeHTTP(resp, missing)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartClear(t *testing.T) {
	carts := &stubCart{}
	handlers := CartHandlers{Cart: carts, Checkout: &stubCheckout{}}

	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil), "sess-1")
	resp := httptest.NewRecorder()
	handlers.Clear().ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if carts.cleared != 1 {
		t.Fatalf("expected clear to be called once")
	}
}
