package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	"github.com/angelmondragon/sweetshop-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListQuery narrows a catalog page. Limit already includes the lookahead row.
type ListQuery struct {
	Featured *bool
	Tag      string
	Query    string
	Limit    int
	Cursor   *pagination.Cursor
}

// SweetRepository defines the persistence surface of the catalog.
type SweetRepository interface {
	WithTx(tx *gorm.DB) SweetRepository
	Create(ctx context.Context, sweet *models.Sweet) (*models.Sweet, error)
	Update(ctx context.Context, sweet *models.Sweet) (*models.Sweet, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SoleProductOffers(ctx context.Context, id uuid.UUID) ([]string, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sweet, error)
	List(ctx context.Context, q ListQuery) ([]models.Sweet, error)
	Count(ctx context.Context) (int64, error)
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	ReplaceSizes(ctx context.Context, sweetID uuid.UUID, sizes []models.SweetSize) error
	ReplaceTags(ctx context.Context, sweetID uuid.UUID, tags []models.SweetTag) error
}

// Repository persists sweets with their sizes and tags.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) SweetRepository {
	return &Repository{db: tx}
}

// Create inserts the sweet together with its sizes and tags.
func (r *Repository) Create(ctx context.Context, sweet *models.Sweet) (*models.Sweet, error) {
	if err := r.db.WithContext(ctx).Create(sweet).Error; err != nil {
		return nil, err
	}
	return sweet, nil
}

// Update saves the sweet row only. Sizes and tags go through the Replace helpers.
func (r *Repository) Update(ctx context.Context, sweet *models.Sweet) (*models.Sweet, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(sweet).Error; err != nil {
		return nil, err
	}
	return sweet, nil
}

// Delete removes the sweet and its children. It returns gorm.ErrRecordNotFound
// when nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("sweet_id = ?", id).Delete(&models.SweetSize{}).Error; err != nil {
		return err
	}
	if err := tx.Where("sweet_id = ?", id).Delete(&models.SweetTag{}).Error; err != nil {
		return err
	}
	if err := tx.Where("sweet_id = ?", id).Delete(&models.OfferProduct{}).Error; err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&models.Sweet{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoleProductOffers returns the codes of offers restricted to this sweet and
// nothing else. Dropping their last offer_products row would widen them to
// every product.
func (r *Repository) SoleProductOffers(ctx context.Context, id uuid.UUID) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Joins("JOIN offer_products op ON op.offer_id = offers.id AND op.sweet_id = ?", id).
		Where("NOT EXISTS (SELECT 1 FROM offer_products other WHERE other.offer_id = offers.id AND other.sweet_id <> ?)", id).
		Order("offers.code").
		Pluck("offers.code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sweet, error) {
	var sweet models.Sweet
	if err := r.preloaded(ctx).First(&sweet, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sweet, nil
}

// List returns sweets newest first using keyset pagination on (created_at, id).
func (r *Repository) List(ctx context.Context, q ListQuery) ([]models.Sweet, error) {
	query := r.preloaded(ctx).Model(&models.Sweet{})
	if q.Featured != nil {
		query = query.Where("featured = ?", *q.Featured)
	}
	if tag := strings.ToLower(strings.TrimSpace(q.Tag)); tag != "" {
		query = query.Where("EXISTS (SELECT 1 FROM sweet_tags st WHERE st.sweet_id = sweets.id AND st.tag = ?)", tag)
	}
	if term := strings.ToLower(strings.TrimSpace(q.Query)); term != "" {
		like := "%" + term + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	if q.Cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []models.Sweet
	if err := query.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Sweet{}).Count(&count).Error
	return count, err
}

// ExistingIDs returns the subset of ids present in the catalog.
func (r *Repository) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Sweet{}).
		Where("id IN ?", ids).
		Pluck("id", &found).
		Error; err != nil {
		return nil, err
	}
	return found, nil
}

// ReplaceSizes swaps every size row for the sweet.
func (r *Repository) ReplaceSizes(ctx context.Context, sweetID uuid.UUID, sizes []models.SweetSize) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("sweet_id = ?", sweetID).Delete(&models.SweetSize{}).Error; err != nil {
		return err
	}
	if len(sizes) == 0 {
		return nil
	}
	for i := range sizes {
		sizes[i].SweetID = sweetID
	}
	return tx.Create(&sizes).Error
}

// ReplaceTags swaps every tag row for the sweet.
func (r *Repository) ReplaceTags(ctx context.Context, sweetID uuid.UUID, tags []models.SweetTag) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("sweet_id = ?", sweetID).Delete(&models.SweetTag{}).Error; err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	for i := range tags {
		tags[i].SweetID = sweetID
	}
	return tx.Create(&tags).Error
}

func (r *Repository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Sizes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tag ASC")
		})
}
