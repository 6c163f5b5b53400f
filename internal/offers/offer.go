package offers

import (
	"strings"
	"time"
)

const (
	DefaultBannerColor = "#f97316"
	DefaultTextColor   = "#ffffff"

	MinDiscount = 0
	MaxDiscount = 100
)

// Offer is the pricing view of a promotional code. AppliesTo holds the
// product ids the offer is limited to; empty means every product.
type Offer struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Discount    int       `json:"discount"`
	Code        string    `json:"code"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsActive    bool      `json:"is_active"`
	AppliesTo   []string  `json:"applies_to"`
	BannerColor string    `json:"banner_color"`
	TextColor   string    `json:"text_color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsLive reports whether the offer is switched on and now falls inside
// [StartDate, EndDate], both bounds inclusive.
func (o Offer) IsLive(now time.Time) bool {
	if !o.IsActive {
		return false
	}
	return !now.Before(o.StartDate) && !now.After(o.EndDate)
}

// AppliesToAll reports whether the offer has no product restriction.
func (o Offer) AppliesToAll() bool {
	return len(o.AppliesTo) == 0
}

// AppliedPromo is the promo currently attached to a checkout session.
type AppliedPromo struct {
	OfferID         string `json:"offer_id,omitempty"`
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
}

// NormalizeCode trims and uppercases a promo code so matching is case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FilterLive returns the offers live at now, preserving order.
func FilterLive(all []Offer, now time.Time) []Offer {
	live := make([]Offer, 0, len(all))
	for _, offer := range all {
		if offer.IsLive(now) {
			live = append(live, offer)
		}
	}
	return live
}
