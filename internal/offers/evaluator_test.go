package offers

import (
	"testing"
	"time"

	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var evalNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func festival(appliesTo ...string) Offer {
	return Offer{
		ID:        "offer-1",
		Title:     "Festival Special",
		Discount:  15,
		Code:      "FESTIVAL15",
		StartDate: evalNow.Add(-24 * time.Hour),
		EndDate:   evalNow.Add(24 * time.Hour),
		IsActive:  true,
		AppliesTo: appliesTo,
	}
}

func gulabCart(t *testing.T) cart.Cart {
	t.Helper()
	var c cart.Cart
	require.NoError(t, c.AddItem(cart.LineItem{ProductID: "gulab-jamun", Size: "500g", Quantity: 2, UnitPrice: 280}))
	return c
}

func TestApplyPromoCodeAllProducts(t *testing.T) {
	promo, err := ApplyPromoCode("FESTIVAL15", []Offer{festival()}, gulabCart(t), evalNow)
	require.NoError(t, err)
	assert.Equal(t, "FESTIVAL15", promo.Code)
	assert.Equal(t, 15, promo.DiscountPercent)
	assert.Equal(t, "offer-1", promo.OfferID)
	assert.Equal(t, int64(84), ComputeDiscountAmount(560, &promo))
}

func TestApplyPromoCodeNormalizesInput(t *testing.T) {
	offer := festival()
	offer.Code = "Festival15"

	promo, err := ApplyPromoCode("  festival15 ", []Offer{offer}, gulabCart(t), evalNow)
	require.NoError(t, err)
	assert.Equal(t, "FESTIVAL15", promo.Code)
}

func TestApplyPromoCodeEmpty(t *testing.T) {
	for _, code := range []string{"", "   ", "\t"} {
		_, err := ApplyPromoCode(code, []Offer{festival()}, gulabCart(t), evalNow)
		assert.ErrorIs(t, err, ErrEmptyCode, "code %q", code)
	}
}

func TestApplyPromoCodeUnknownOrInactive(t *testing.T) {
	_, err := ApplyPromoCode("NOPE", []Offer{festival()}, gulabCart(t), evalNow)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	inactive := festival()
	inactive.IsActive = false
	_, err = ApplyPromoCode("FESTIVAL15", []Offer{inactive}, gulabCart(t), evalNow)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestApplyPromoCodeWindowBounds(t *testing.T) {
	offer := festival()
	offer.StartDate = evalNow
	offer.EndDate = evalNow.Add(time.Hour)
	c := gulabCart(t)

	_, err := ApplyPromoCode("FESTIVAL15", []Offer{offer}, c, offer.StartDate)
	assert.NoError(t, err, "start is inclusive")
	_, err = ApplyPromoCode("FESTIVAL15", []Offer{offer}, c, offer.EndDate)
	assert.NoError(t, err, "end is inclusive")

	_, err = ApplyPromoCode("FESTIVAL15", []Offer{offer}, c, offer.StartDate.Add(-time.Nanosecond))
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode, "before start")
	_, err = ApplyPromoCode("FESTIVAL15", []Offer{offer}, c, offer.EndDate.Add(time.Nanosecond))
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode, "after end")
}

func TestApplyPromoCodeExpiredYesterday(t *testing.T) {
	offer := festival()
	offer.StartDate = evalNow.Add(-72 * time.Hour)
	offer.EndDate = evalNow.Add(-24 * time.Hour)

	_, err := ApplyPromoCode("FESTIVAL15", []Offer{offer}, gulabCart(t), evalNow)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestApplyPromoCodeRestrictedProducts(t *testing.T) {
	c := gulabCart(t)

	_, err := ApplyPromoCode("FESTIVAL15", []Offer{festival("kaju-katli")}, c, evalNow)
	assert.ErrorIs(t, err, ErrNotApplicableToCart)

	promo, err := ApplyPromoCode("FESTIVAL15", []Offer{festival("kaju-katli", "gulab-jamun")}, c, evalNow)
	require.NoError(t, err)
	assert.Equal(t, 15, promo.DiscountPercent)
}

func TestApplyPromoCodeEmptyCartRejected(t *testing.T) {
	_, err := ApplyPromoCode("FESTIVAL15", []Offer{festival()}, cart.Cart{}, evalNow)
	assert.ErrorIs(t, err, ErrNotApplicableToCart)
}

func TestApplyPromoCodeSkipsExpiredDuplicateCode(t *testing.T) {
	expired := festival()
	expired.ID = "old"
	expired.Discount = 50
	expired.EndDate = evalNow.Add(-time.Hour)

	promo, err := ApplyPromoCode("FESTIVAL15", []Offer{expired, festival()}, gulabCart(t), evalNow)
	require.NoError(t, err)
	assert.Equal(t, "offer-1", promo.OfferID)
}

func TestComputeDiscountAmount(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		percent  int
		want     int64
	}{
		{name: "festival fifteen", subtotal: 560, percent: 15, want: 84},
		{name: "half rounds up", subtotal: 5, percent: 10, want: 1},
		{name: "above half", subtotal: 125, percent: 10, want: 13},
		{name: "below half", subtotal: 104, percent: 10, want: 10},
		{name: "full discount", subtotal: 300, percent: 100, want: 300},
		{name: "zero percent", subtotal: 300, percent: 0, want: 0},
		{name: "clamped", subtotal: 300, percent: 150, want: 300},
		{name: "empty cart", subtotal: 0, percent: 15, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDiscountAmount(tt.subtotal, &AppliedPromo{Code: "X", DiscountPercent: tt.percent})
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, int64(0), ComputeDiscountAmount(560, nil))
}

func TestPromoStateTransitions(t *testing.T) {
	var state PromoState
	assert.Equal(t, enums.PromoStateNone, state.State())
	assert.Nil(t, state.Current())

	c := gulabCart(t)
	_, err := state.Apply("FESTIVAL15", []Offer{festival("kaju-katli")}, c, evalNow)
	assert.ErrorIs(t, err, ErrNotApplicableToCart)
	assert.Equal(t, enums.PromoStateNone, state.State(), "failed apply leaves state untouched")

	_, err = state.Apply("festival15", []Offer{festival()}, c, evalNow)
	require.NoError(t, err)
	assert.Equal(t, enums.PromoStateApplied, state.State())

	other := festival()
	other.Code = "SWEET20"
	other.Discount = 20
	_, err = state.Apply("SWEET20", []Offer{other}, c, evalNow)
	require.NoError(t, err)
	assert.Equal(t, 20, state.Current().DiscountPercent, "a later apply overwrites")

	_, err = state.Apply("BOGUS", []Offer{other}, c, evalNow)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
	assert.Equal(t, "SWEET20", state.Current().Code, "failed apply keeps prior promo")

	state.Remove()
	assert.Equal(t, enums.PromoStateNone, state.State())
	state.Remove()
	assert.Equal(t, enums.PromoStateNone, state.State())
}

func TestAsAPIErrorCarriesReason(t *testing.T) {
	err := AsAPIError(ErrNotApplicableToCart)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.ErrorIs(t, err, ErrNotApplicableToCart)

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ReasonNotApplicableToCart, details["reason"])

	plain := pkgerrors.New(pkgerrors.CodeDependency, "down")
	assert.Equal(t, error(plain), AsAPIError(plain))
}
