package offers

import (
	"strings"
	"time"

	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ApplyPromoCode validates code against the offers and the cart contents at
// now. It returns one of ErrEmptyCode, ErrInvalidOrExpiredCode or
// ErrNotApplicableToCart when the code cannot be applied.
func ApplyPromoCode(code string, offers []Offer, c cart.Cart, now time.Time) (AppliedPromo, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return AppliedPromo{}, ErrEmptyCode
	}

	offer, ok := findLive(normalized, offers, now)
	if !ok {
		return AppliedPromo{}, ErrInvalidOrExpiredCode
	}
	if !eligible(offer, c) {
		return AppliedPromo{}, ErrNotApplicableToCart
	}

	return AppliedPromo{
		OfferID:         offer.ID,
		Code:            NormalizeCode(offer.Code),
		DiscountPercent: offer.Discount,
	}, nil
}

func findLive(normalized string, offers []Offer, now time.Time) (Offer, bool) {
	for _, offer := range offers {
		if NormalizeCode(offer.Code) != normalized {
			continue
		}
		if offer.IsLive(now) {
			return offer, true
		}
	}
	return Offer{}, false
}

// eligible requires a non-empty cart. Restricted offers also need at least
// one cart product inside AppliesTo.
func eligible(offer Offer, c cart.Cart) bool {
	if c.IsEmpty() {
		return false
	}
	if offer.AppliesToAll() {
		return true
	}
	for _, id := range offer.AppliesTo {
		if c.ContainsProduct(strings.TrimSpace(id)) {
			return true
		}
	}
	return false
}

// ComputeDiscountAmount returns round-half-up(subtotal * percent / 100),
// clamped to [0, subtotal]. A nil promo yields 0.
func ComputeDiscountAmount(subtotal int64, promo *AppliedPromo) int64 {
	if promo == nil || subtotal <= 0 || promo.DiscountPercent <= 0 {
		return 0
	}
	amount := decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromInt(int64(promo.DiscountPercent))).
		Div(hundred).
		Round(0).
		IntPart()
	if amount > subtotal {
		return subtotal
	}
	return amount
}

// PromoState holds at most one applied promo for a checkout session.
// The zero value is the no-promo state.
type PromoState struct {
	Applied *AppliedPromo `json:"applied,omitempty"`
}

// Apply evaluates code and, on success, replaces the current promo. On
// failure the state is left untouched.
func (p *PromoState) Apply(code string, offers []Offer, c cart.Cart, now time.Time) (AppliedPromo, error) {
	promo, err := ApplyPromoCode(code, offers, c, now)
	if err != nil {
		return AppliedPromo{}, err
	}
	p.Applied = &promo
	return promo, nil
}

// Remove clears the applied promo. Calling it with no promo is a no-op.
func (p *PromoState) Remove() {
	p.Applied = nil
}

func (p PromoState) State() enums.PromoState {
	if p.Applied == nil {
		return enums.PromoStateNone
	}
	return enums.PromoStateApplied
}

// Current returns a copy of the applied promo, or nil.
func (p PromoState) Current() *AppliedPromo {
	if p.Applied == nil {
		return nil
	}
	promo := *p.Applied
	return &promo
}
