package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
)

// Service exposes the shopper-facing cart operations for a session.
type Service interface {
	Get(ctx context.Context, sessionID string) (Cart, error)
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (Cart, error)
	UpdateQuantity(ctx context.Context, sessionID string, input UpdateQuantityInput) (Cart, error)
	RemoveItem(ctx context.Context, sessionID, productID, size string) (Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

// AddItemInput identifies the catalog entry and how many units to add.
type AddItemInput struct {
	ProductID string
	Size      string
	Quantity  int
}

// UpdateQuantityInput replaces the quantity on an existing line.
type UpdateQuantityInput struct {
	ProductID string
	Size      string
	Quantity  int
}

type service struct {
	store    Store
	products ProductSource
}

// NewService builds a cart service backed by the session store and catalog.
func NewService(store Store, products ProductSource) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product source required")
	}
	return &service{store: store, products: products}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (Cart, error) {
	if err := requireSession(sessionID); err != nil {
		return Cart{}, err
	}
	c, err := s.store.LoadCart(ctx, sessionID)
	if err != nil {
		return Cart{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c, nil
}

// AddItem captures the current catalog price for the size and merges it into the cart.
func (s *service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (Cart, error) {
	if err := requireSession(sessionID); err != nil {
		return Cart{}, err
	}
	productID := strings.TrimSpace(input.ProductID)
	size := strings.TrimSpace(input.Size)
	if productID == "" || size == "" {
		return Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "product id and size are required")
	}
	if err := checkQuantity(input.Quantity); err != nil {
		return Cart{}, quantityError(err)
	}

	snapshot, err := s.products.FindSize(ctx, productID, size)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return Cart{}, err
		}
		return Cart{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve product size")
	}

	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	if err := c.AddItem(LineItem{
		ProductID: snapshot.ProductID,
		Size:      snapshot.Size,
		Quantity:  input.Quantity,
		UnitPrice: snapshot.Price,
		Name:      snapshot.Name,
		Image:     snapshot.Image,
	}); err != nil {
		return Cart{}, quantityError(err)
	}
	return s.save(ctx, sessionID, c)
}

func (s *service) UpdateQuantity(ctx context.Context, sessionID string, input UpdateQuantityInput) (Cart, error) {
	if err := checkQuantity(input.Quantity); err != nil {
		return Cart{}, quantityError(err)
	}
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	if err := c.UpdateQuantity(strings.TrimSpace(input.ProductID), strings.TrimSpace(input.Size), input.Quantity); err != nil {
		return Cart{}, quantityError(err)
	}
	return s.save(ctx, sessionID, c)
}

func (s *service) RemoveItem(ctx context.Context, sessionID, productID, size string) (Cart, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	c.RemoveItem(strings.TrimSpace(productID), strings.TrimSpace(size))
	return s.save(ctx, sessionID, c)
}

// Clear empties the cart and resets any promo applied to the session.
func (s *service) Clear(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if err := s.store.ClearSession(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) save(ctx context.Context, sessionID string, c Cart) (Cart, error) {
	if err := s.store.SaveCart(ctx, sessionID, c); err != nil {
		return Cart{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return c, nil
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return nil
}

func quantityError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "quantity must be at least 1").
			WithDetails(map[string]any{"field": "quantity"})
	case errors.Is(err, ErrQuantityTooLarge):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("a line may hold at most %d units", MaxQuantity)).
			WithDetails(map[string]any{"field": "quantity", "max": MaxQuantity})
	}
	return err
}
