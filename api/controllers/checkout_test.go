package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/sweetshop-backend/api/middleware"
	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	"github.com/angelmondragon/sweetshop-backend/internal/checkout"
	"github.com/angelmondragon/sweetshop-backend/internal/offers"
	pkgcheckout "github.com/angelmondragon/sweetshop-backend/pkg/checkout"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
)

type stubCheckout struct {
	quote     checkout.Quote
	quoteErr  error
	applyErr  error
	submitErr error
	gotCode   string
	gotDetail pkgcheckout.DeliveryDetails
	sessions  []string
}

func (s *stubCheckout) Quote(_ context.Context, sessionID string) (checkout.Quote, error) {
	s.sessions = append(s.sessions, sessionID)
	if s.quoteErr != nil {
		return checkout.Quote{}, s.quoteErr
	}
	return s.quote, nil
}

func (s *stubCheckout) ApplyPromo(_ context.Context, sessionID, code string) (checkout.Quote, error) {
	s.sessions = append(s.sessions, sessionID)
	s.gotCode = code
	if s.applyErr != nil {
		return checkout.Quote{}, s.applyErr
	}
	return s.quote, nil
}

func (s *stubCheckout) RemovePromo(_ context.Context, sessionID string) (checkout.Quote, error) {
	s.sessions = append(s.sessions, sessionID)
	return s.quote, nil
}

func (s *stubCheckout) Submit(_ context.Context, sessionID string, details pkgcheckout.DeliveryDetails) (checkout.Receipt, error) {
	s.sessions = append(s.sessions, sessionID)
	s.gotDetail = details
	if s.submitErr != nil {
		return checkout.Receipt{}, s.submitErr
	}
	return checkout.Receipt{SubmissionID: "sub-1", Totals: s.quote.Totals}, nil
}

func withSession(req *http.Request, id string) *http.Request {
	return req.WithContext(middleware.WithSessionID(req.Context(), id))
}

func appliedQuote() checkout.Quote {
	return checkout.Quote{
		Items:      []cart.LineItem{{ProductID: "gulab", Size: "500g", Quantity: 1, UnitPrice: 280, Name: "Gulab Jamun"}},
		ItemCount:  1,
		PromoState: enums.PromoStateApplied,
		Promo:      &offers.AppliedPromo{Code: "SWEET10", DiscountPercent: 10},
		Totals:     checkout.Totals{Subtotal: 280, DeliveryFee: 50, DiscountAmount: 28, Total: 302},
	}
}

func TestCheckoutApplyPromoSuccess(t *testing.T) {
	stub := &stubCheckout{quote: appliedQuote()}
	handler := CheckoutHandlers{Checkout: stub}.ApplyPromo()

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/promo", strings.NewReader(`{"code":"sweet10"}`)), "sess-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if stub.gotCode != "sweet10" || stub.sessions[0] != "sess-1" {
		t.Fatalf("unexpected call code=%q sessions=%v", stub.gotCode, stub.sessions)
	}
	var envelope struct {
		Data checkout.Quote `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Totals.Total != 302 || envelope.Data.PromoState != enums.PromoStateApplied {
		t.Fatalf("unexpected quote %+v", envelope.Data)
	}
}

func TestCheckoutApplyPromoRejectionCarriesReason(t *testing.T) {
	stub := &stubCheckout{applyErr: offers.AsAPIError(offers.ErrNotApplicableToCart)}
	handler := CheckoutHandlers{Checkout: stub}.ApplyPromo()

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/promo", strings.NewReader(`{"code":"KAJU20"}`)), "sess-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if envelope.Error.Details["reason"] != offers.ReasonNotApplicableToCart {
		t.Fatalf("unexpected details %v", envelope.Error.Details)
	}
}

func TestCheckoutMissingSession(t *testing.T) {
	handler := CheckoutHandlers{Checkout: &stubCheckout{}}.Quote()
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/checkout/quote", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutSubmitCreatesReceipt(t *testing.T) {
	stub := &stubCheckout{quote: appliedQuote()}
	handler := CheckoutHandlers{Checkout: stub}.Submit()

	body := `{"name":"Asha","phone":"9876543210","address":"12 MG Road","pincode":"560001","payment_method":"cod"}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)), "sess-9")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if stub.gotDetail.Name != "Asha" || stub.gotDetail.PaymentMethod != enums.PaymentMethodCOD {
		t.Fatalf("unexpected details %+v", stub.gotDetail)
	}
	var envelope struct {
		Data checkout.Receipt `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.SubmissionID != "sub-1" || envelope.Data.Totals.Total != 302 {
		t.Fatalf("unexpected receipt %+v", envelope.Data)
	}
}

func TestCheckoutSubmitPromoLapsed(t *testing.T) {
	lapsed := pkgerrors.New(pkgerrors.CodeStateConflict, "applied promo is no longer valid").
		WithDetails(map[string]any{"reason": checkout.ReasonPromoNoLongerValid})
	handler := CheckoutHandlers{Checkout: &stubCheckout{submitErr: lapsed}}.Submit()

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"name":"Asha"}`)), "sess-9")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
