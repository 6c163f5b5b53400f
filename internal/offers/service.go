package offers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/sweetshop-backend/pkg/db"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes offer reads for the storefront and CRUD for admins.
type Service interface {
	List(ctx context.Context, activeOnly bool) ([]Offer, error)
	ListActive(ctx context.Context, now time.Time) ([]Offer, error)
	Get(ctx context.Context, id uuid.UUID) (*Offer, error)
	Create(ctx context.Context, input CreateInput) (*Offer, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Offer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput captures a new offer. Nil IsActive defaults to true.
type CreateInput struct {
	Title       string
	Description string
	Discount    int
	Code        string
	StartDate   time.Time
	EndDate     time.Time
	IsActive    *bool
	AppliesTo   []uuid.UUID
	BannerColor string
	TextColor   string
}

// UpdateInput is a partial update; nil fields are left unchanged.
// A non-nil AppliesTo replaces the product restriction, empty meaning all products.
type UpdateInput struct {
	Title       *string
	Description *string
	Discount    *int
	Code        *string
	StartDate   *time.Time
	EndDate     *time.Time
	IsActive    *bool
	AppliesTo   *[]uuid.UUID
	BannerColor *string
	TextColor   *string
}

type service struct {
	repo   OfferRepository
	tx     txRunner
	sweets sweetChecker
	cache  cacheInvalidator
	now    func() time.Time
}

// ServiceOption customizes optional collaborators.
type ServiceOption func(*service)

// WithCacheInvalidator drops the cached active list after each admin mutation.
func WithCacheInvalidator(cache cacheInvalidator) ServiceOption {
	return func(s *service) { s.cache = cache }
}

// WithClock overrides the time source used for the active filter.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) { s.now = now }
}

// NewService builds the offers service.
func NewService(repo OfferRepository, tx txRunner, sweets sweetChecker, opts ...ServiceOption) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("offer repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sweets == nil {
		return nil, fmt.Errorf("sweet checker required")
	}
	svc := &service{repo: repo, tx: tx, sweets: sweets, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]Offer, error) {
	if activeOnly {
		return s.ListActive(ctx, s.now())
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list offers")
	}
	return fromModels(rows), nil
}

// ListActive returns offers with IsActive set and now inside their window.
func (s *service) ListActive(ctx context.Context, now time.Time) ([]Offer, error) {
	now = now.UTC()
	rows, err := s.repo.ListActive(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active offers")
	}
	return FilterLive(fromModels(rows), now), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Offer, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	offer := FromModel(*row)
	return &offer, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Offer, error) {
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	row := &models.Offer{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Discount:    input.Discount,
		Code:        NormalizeCode(input.Code),
		StartDate:   input.StartDate.UTC(),
		EndDate:     input.EndDate.UTC(),
		IsActive:    isActive,
		BannerColor: colorOrDefault(input.BannerColor, DefaultBannerColor),
		TextColor:   colorOrDefault(input.TextColor, DefaultTextColor),
	}
	if err := validateOffer(row); err != nil {
		return nil, err
	}
	sweetIDs, err := s.checkSweets(ctx, input.AppliesTo)
	if err != nil {
		return nil, err
	}

	var created *models.Offer
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := ensureCodeFree(ctx, repo, row.Code, uuid.Nil); err != nil {
			return err
		}
		saved, err := repo.Create(ctx, row)
		if err != nil {
			return mapWriteErr(err)
		}
		if err := repo.ReplaceProducts(ctx, saved.ID, sweetIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach offer products")
		}
		created, err = repo.FindByID(ctx, saved.ID)
		return err
	})
	if err != nil {
		return nil, asTyped(err, "create offer")
	}
	s.invalidate(ctx)
	offer := FromModel(*created)
	return &offer, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Offer, error) {
	var sweetIDs []uuid.UUID
	if input.AppliesTo != nil {
		checked, err := s.checkSweets(ctx, *input.AppliesTo)
		if err != nil {
			return nil, err
		}
		sweetIDs = checked
	}

	var updated *models.Offer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		applyUpdate(row, input)
		if err := validateOffer(row); err != nil {
			return err
		}
		if input.Code != nil {
			if err := ensureCodeFree(ctx, repo, row.Code, row.ID); err != nil {
				return err
			}
		}
		row.Products = nil
		if _, err := repo.Update(ctx, row); err != nil {
			return mapWriteErr(err)
		}
		if input.AppliesTo != nil {
			if err := repo.ReplaceProducts(ctx, row.ID, sweetIDs); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace offer products")
			}
		}
		updated, err = repo.FindByID(ctx, row.ID)
		return err
	})
	if err != nil {
		return nil, asTyped(err, "update offer")
	}
	s.invalidate(ctx)
	offer := FromModel(*updated)
	return &offer, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return mapLookupErr(err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) checkSweets(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	unique := dedupeIDs(ids)
	if len(unique) == 0 {
		return nil, nil
	}
	existing, err := s.sweets.ExistingIDs(ctx, unique)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check sweets")
	}
	found := make(map[uuid.UUID]struct{}, len(existing))
	for _, id := range existing {
		found[id] = struct{}{}
	}
	missing := []string{}
	for _, id := range unique {
		if _, ok := found[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "applies_to references unknown sweets").
			WithDetails(map[string]any{"missing": missing})
	}
	return unique, nil
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	// a stale cache only lasts one TTL; the write already committed
	_ = s.cache.Invalidate(ctx)
}

func applyUpdate(row *models.Offer, input UpdateInput) {
	if input.Title != nil {
		row.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		row.Description = strings.TrimSpace(*input.Description)
	}
	if input.Discount != nil {
		row.Discount = *input.Discount
	}
	if input.Code != nil {
		row.Code = NormalizeCode(*input.Code)
	}
	if input.StartDate != nil {
		row.StartDate = input.StartDate.UTC()
	}
	if input.EndDate != nil {
		row.EndDate = input.EndDate.UTC()
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}
	if input.BannerColor != nil {
		row.BannerColor = colorOrDefault(*input.BannerColor, DefaultBannerColor)
	}
	if input.TextColor != nil {
		row.TextColor = colorOrDefault(*input.TextColor, DefaultTextColor)
	}
}

func validateOffer(row *models.Offer) error {
	fields := map[string]string{}
	if row.Title == "" {
		fields["title"] = "title is required"
	}
	if row.Code == "" {
		fields["code"] = "code is required"
	}
	if row.Discount < MinDiscount || row.Discount > MaxDiscount {
		fields["discount"] = fmt.Sprintf("discount must be between %d and %d", MinDiscount, MaxDiscount)
	}
	if row.StartDate.IsZero() {
		fields["start_date"] = "start_date is required"
	}
	if row.EndDate.IsZero() {
		fields["end_date"] = "end_date is required"
	}
	if !row.StartDate.IsZero() && !row.EndDate.IsZero() && row.EndDate.Before(row.StartDate) {
		fields["end_date"] = "end_date must not be before start_date"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid offer").WithDetails(fields)
	}
	return nil
}

func ensureCodeFree(ctx context.Context, repo OfferRepository, code string, self uuid.UUID) error {
	existing, err := repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup offer code")
	}
	if existing.ID != self {
		return pkgerrors.New(pkgerrors.CodeConflict, "offer code already exists").
			WithDetails(map[string]any{"code": code})
	}
	return nil
}

func colorOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "offer not found")
	}
	return asTyped(err, "load offer")
}

func mapWriteErr(err error) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "offer code already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write offer")
}

func asTyped(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "offer not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
