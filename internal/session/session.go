package session

import (
	"time"

	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	"github.com/angelmondragon/sweetshop-backend/internal/offers"
)

// Session is everything the storefront keeps for one shopper between requests.
type Session struct {
	Cart      cart.Cart         `json:"cart"`
	Promo     offers.PromoState `json:"promo"`
	UpdatedAt time.Time         `json:"updated_at"`
}
