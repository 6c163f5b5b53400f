package checkout

import (
	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	"github.com/angelmondragon/sweetshop-backend/internal/offers"
)

// DefaultDeliveryFee is charged on every non-empty cart.
const DefaultDeliveryFee int64 = 50

// Totals is the derived price breakdown for a cart and optional promo.
type Totals struct {
	Subtotal       int64 `json:"subtotal"`
	DeliveryFee    int64 `json:"delivery_fee"`
	DiscountAmount int64 `json:"discount_amount"`
	Total          int64 `json:"total"`
}

// Pricing carries the configurable parts of total derivation.
type Pricing struct {
	DeliveryFee int64
}

func DefaultPricing() Pricing {
	return Pricing{DeliveryFee: DefaultDeliveryFee}
}

// ComputeTotal derives totals with the default delivery fee.
func ComputeTotal(c cart.Cart, promo *offers.AppliedPromo) Totals {
	return DefaultPricing().ComputeTotal(c, promo)
}

// ComputeTotal returns subtotal + delivery fee - discount. The fee only
// applies when the subtotal is positive, and the discount never exceeds the
// subtotal, so Total is never negative.
func (p Pricing) ComputeTotal(c cart.Cart, promo *offers.AppliedPromo) Totals {
	subtotal := c.Subtotal()
	var fee int64
	if subtotal > 0 && p.DeliveryFee > 0 {
		fee = p.DeliveryFee
	}
	discount := offers.ComputeDiscountAmount(subtotal, promo)
	return Totals{
		Subtotal:       subtotal,
		DeliveryFee:    fee,
		DiscountAmount: discount,
		Total:          subtotal + fee - discount,
	}
}
