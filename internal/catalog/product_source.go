package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductSource resolves cart additions against the catalog.
type ProductSource struct {
	repo SweetRepository
}

var _ cart.ProductSource = (*ProductSource)(nil)

func NewProductSource(repo SweetRepository) (*ProductSource, error) {
	if repo == nil {
		return nil, fmt.Errorf("sweet repository required")
	}
	return &ProductSource{repo: repo}, nil
}

// FindSize returns the current name, image and unit price for a sweet size.
func (p *ProductSource) FindSize(ctx context.Context, productID, size string) (*cart.ProductSize, error) {
	id, err := uuid.Parse(strings.TrimSpace(productID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	sweet, err := p.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	label := strings.TrimSpace(size)
	for _, s := range sweet.Sizes {
		if s.Label == label {
			return &cart.ProductSize{
				ProductID: sweet.ID.String(),
				Name:      sweet.Name,
				Image:     sweet.Image,
				Size:      s.Label,
				Price:     s.Price,
			}, nil
		}
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, gorm.ErrRecordNotFound, "size not available").
		WithDetails(map[string]any{"size": label})
}
