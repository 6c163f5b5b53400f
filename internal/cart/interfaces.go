package cart

import "context"

// ProductSize is the catalog snapshot captured when a line is added.
type ProductSize struct {
	ProductID string
	Name      string
	Image     string
	Size      string
	Price     int64
}

// ProductSource resolves a (product, size) pair against the catalog.
type ProductSource interface {
	FindSize(ctx context.Context, productID, size string) (*ProductSize, error)
}

// Store persists the session-scoped cart. ClearSession also drops any
// session state layered on top of the cart, such as an applied promo.
type Store interface {
	LoadCart(ctx context.Context, sessionID string) (Cart, error)
	SaveCart(ctx context.Context, sessionID string, c Cart) error
	ClearSession(ctx context.Context, sessionID string) error
}
