package offers

import (
	"context"
	"time"

	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists offers and their product restrictions.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) OfferRepository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
	if err := r.db.WithContext(ctx).Omit("Products").Create(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

func (r *Repository) Update(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
	if err := r.db.WithContext(ctx).Omit("Products").Save(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

// Delete removes the offer and its product rows. It returns
// gorm.ErrRecordNotFound when the offer does not exist.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("offer_id = ?", id).Delete(&models.OfferProduct{}).Error; err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&models.Offer{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).
		Preload("Products").
		First(&offer, "id = ?", id).
		Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// FindByCode looks up an offer by its stored (normalized) code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).
		Preload("Products").
		First(&offer, "code = ?", code).
		Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// List returns every offer, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Offer, error) {
	var rows []models.Offer
	if err := r.db.WithContext(ctx).
		Preload("Products").
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActive returns offers switched on whose window contains now.
func (r *Repository) ListActive(ctx context.Context, now time.Time) ([]models.Offer, error) {
	var rows []models.Offer
	if err := r.db.WithContext(ctx).
		Preload("Products").
		Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, now, now).
		Order("start_date ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplaceProducts swaps the offer's product restriction for sweetIDs.
func (r *Repository) ReplaceProducts(ctx context.Context, offerID uuid.UUID, sweetIDs []uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("offer_id = ?", offerID).Delete(&models.OfferProduct{}).Error; err != nil {
		return err
	}
	if len(sweetIDs) == 0 {
		return nil
	}
	rows := make([]models.OfferProduct, 0, len(sweetIDs))
	for _, id := range sweetIDs {
		rows = append(rows, models.OfferProduct{OfferID: offerID, SweetID: id})
	}
	return tx.Create(&rows).Error
}
