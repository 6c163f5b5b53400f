package offers

import (
	"context"
	"time"

	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Source supplies the offers live at a point in time.
type Source interface {
	ListActive(ctx context.Context, now time.Time) ([]Offer, error)
}

// OfferRepository defines the persistence surface required by the offers service.
type OfferRepository interface {
	WithTx(tx *gorm.DB) OfferRepository
	Create(ctx context.Context, offer *models.Offer) (*models.Offer, error)
	Update(ctx context.Context, offer *models.Offer) (*models.Offer, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindByCode(ctx context.Context, code string) (*models.Offer, error)
	List(ctx context.Context) ([]models.Offer, error)
	ListActive(ctx context.Context, now time.Time) ([]models.Offer, error)
	ReplaceProducts(ctx context.Context, offerID uuid.UUID, sweetIDs []uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// sweetChecker reports which of the provided ids exist in the catalog.
type sweetChecker interface {
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context) error
}
