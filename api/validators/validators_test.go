package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
)

type addItemBody struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

func TestDecodeJSONBodyValidatesFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"","size":"250g","quantity":0}`))
	var body addItemBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
	}
	if details["product_id"] != "is required" {
		t.Fatalf("unexpected product_id detail %q", details["product_id"])
	}
	if details["quantity"] != "must be at least 1" {
		t.Fatalf("unexpected quantity detail %q", details["quantity"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"a","size":"b","quantity":1,"price":1}`))
	var body addItemBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown field, got %v", err)
	}
}

func TestParseQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&featured=true&active=maybe", nil)

	if _, err := ParseQueryInt(req, "limit", 20, 1, 100); err == nil {
		t.Fatalf("expected out of range error")
	}
	limit, err := ParseQueryInt(req, "missing", 20, 1, 100)
	if err != nil || limit != 20 {
		t.Fatalf("expected default 20, got %d (%v)", limit, err)
	}

	featured, err := ParseQueryBool(req, "featured")
	if err != nil || featured == nil || !*featured {
		t.Fatalf("expected featured=true, got %v (%v)", featured, err)
	}
	if _, err := ParseQueryBool(req, "active"); err == nil {
		t.Fatalf("expected invalid boolean error")
	}
	unset, err := ParseQueryBool(req, "tag")
	if err != nil || unset != nil {
		t.Fatalf("expected nil for unset bool")
	}

	repeated := httptest.NewRequest(http.MethodGet, "/?limit=10&limit=20", nil)
	if _, err := ParseQueryInt(repeated, "limit", 20, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected repeated parameter to be rejected, got %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  laddoo  ", 3, "lad"},
		{"kaju   katli", 0, "kaju katli"},
		{"रसगुल्ला", 3, "रसग"},
		{"soan papdi", 5, "soan"},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.max); got != tc.want {
			t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestDecodeJSONBodyReportsNestedPaths(t *testing.T) {
	type size struct {
		Label string `json:"label" validate:"required"`
	}
	type sweet struct {
		Name  string `json:"name" validate:"required"`
		Sizes []size `json:"sizes" validate:"required,min=1,dive"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Barfi","sizes":[{"label":"250g"},{"label":""}]}`))
	var body sweet
	err := DecodeJSONBody(req, &body)
	details, _ := pkgerrors.As(err).Details().(map[string]string)
	if details["sizes[1].label"] != "is required" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsEmptyAndTrailing(t *testing.T) {
	var body addItemBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &body)
	if err == nil || pkgerrors.As(err).Message() != "request body is required" {
		t.Fatalf("expected empty body error, got %v", err)
	}
	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"a","size":"b","quantity":1}{}`)), &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected trailing data error, got %v", err)
	}
}

type offerBody struct {
	Code      string    `json:"code" validate:"required,promocode"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	Banner    string    `json:"banner_color" validate:"omitempty,hexcolor"`
}

func TestDecodeJSONBodyOfferRules(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(
		`{"code":"no spaces!","start_date":"2026-10-02T00:00:00Z","end_date":"2026-10-01T00:00:00Z","banner_color":"orange"}`))
	var body offerBody
	err := DecodeJSONBody(req, &body)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %v", err)
	}
	if !strings.HasPrefix(details["code"], "must be 2-32") {
		t.Fatalf("unexpected code detail %q", details["code"])
	}
	if details["end_date"] != "must not be before start_date" {
		t.Fatalf("unexpected end_date detail %q", details["end_date"])
	}
	if !strings.HasPrefix(details["banner_color"], "must be a hex color") {
		t.Fatalf("unexpected banner detail %q", details["banner_color"])
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(
		`{"code":" festival15 ","start_date":"2026-10-01T00:00:00Z","end_date":"2026-10-01T00:00:00Z","banner_color":"#f97316"}`))
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("expected valid offer, got %v", err)
	}
}
