package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes catalog reads for shoppers and CRUD for admins.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*Sweet, error)
	Create(ctx context.Context, input SweetInput) (*Sweet, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Sweet, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type ListParams struct {
	Featured   *bool
	Tag        string
	Query      string
	Pagination pagination.Params
}

type ListResult struct {
	Items      []Sweet `json:"items"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// SweetInput describes a full sweet for creation.
type SweetInput struct {
	Name        string
	Description string
	Image       string
	Featured    bool
	Sizes       []Size
	Tags        []string
}

// UpdateInput is a partial update. Non-nil Sizes or Tags replace the stored set.
type UpdateInput struct {
	Name        *string
	Description *string
	Image       *string
	Featured    *bool
	Sizes       *[]Size
	Tags        *[]string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ReasonSoleOfferProduct marks a delete refused because an offer is
// restricted to that sweet alone.
const ReasonSoleOfferProduct = "SOLE_OFFER_PRODUCT"

// offerCache is the cached active offer list, which embeds product
// restrictions and goes stale when a sweet disappears.
type offerCache interface {
	Invalidate(ctx context.Context) error
}

type service struct {
	repo   SweetRepository
	tx     txRunner
	offers offerCache
	now    func() time.Time
}

// ServiceOption customizes optional collaborators.
type ServiceOption func(*service)

// WithOfferCache drops the cached active offers after a sweet is deleted.
func WithOfferCache(cache offerCache) ServiceOption {
	return func(s *service) { s.offers = cache }
}

func NewService(repo SweetRepository, tx txRunner, opts ...ServiceOption) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sweet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	s := &service{repo: repo, tx: tx, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Pagination.Limit)
	rows, err := s.repo.List(ctx, ListQuery{
		Featured: params.Featured,
		Tag:      params.Tag,
		Query:    params.Query,
		Limit:    pagination.LimitWithBuffer(limit),
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sweets")
	}

	rows, next := pagination.Page(rows, limit, func(m models.Sweet) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return &ListResult{Items: fromModels(rows), NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Sweet, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	sweet := FromModel(*row)
	return &sweet, nil
}

func (s *service) Create(ctx context.Context, input SweetInput) (*Sweet, error) {
	sizes, tags, err := validateSweet(input.Name, input.Sizes, input.Tags)
	if err != nil {
		return nil, err
	}
	row := &models.Sweet{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Image:       strings.TrimSpace(input.Image),
		Featured:    input.Featured,
		Sizes:       sizes,
		Tags:        tags,
		CreatedAt:   s.now().UTC(),
	}

	var created *models.Sweet
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		saved, err := repo.Create(ctx, row)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create sweet")
		}
		created, err = repo.FindByID(ctx, saved.ID)
		return err
	})
	if err != nil {
		return nil, asTyped(err, "create sweet")
	}
	sweet := FromModel(*created)
	return &sweet, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Sweet, error) {
	var updated *models.Sweet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}

		if input.Name != nil {
			row.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			row.Description = strings.TrimSpace(*input.Description)
		}
		if input.Image != nil {
			row.Image = strings.TrimSpace(*input.Image)
		}
		if input.Featured != nil {
			row.Featured = *input.Featured
		}

		currentSizes := make([]Size, 0, len(row.Sizes))
		for _, sz := range row.Sizes {
			currentSizes = append(currentSizes, Size{Label: sz.Label, Price: sz.Price})
		}
		sizesIn := currentSizes
		if input.Sizes != nil {
			sizesIn = *input.Sizes
		}
		var tagsIn []string
		if input.Tags != nil {
			tagsIn = *input.Tags
		}
		sizes, tags, err := validateSweet(row.Name, sizesIn, tagsIn)
		if err != nil {
			return err
		}

		row.Sizes = nil
		row.Tags = nil
		if _, err := repo.Update(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update sweet")
		}
		if input.Sizes != nil {
			if err := repo.ReplaceSizes(ctx, row.ID, sizes); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace sizes")
			}
		}
		if input.Tags != nil {
			if err := repo.ReplaceTags(ctx, row.ID, tags); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace tags")
			}
		}
		updated, err = repo.FindByID(ctx, row.ID)
		return err
	})
	if err != nil {
		return nil, asTyped(err, "update sweet")
	}
	sweet := FromModel(*updated)
	return &sweet, nil
}

// Delete refuses to remove a sweet that is the only product of an offer, since
// an offer without products applies storewide.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		codes, err := repo.SoleProductOffers(ctx, id)
		if err != nil {
			return err
		}
		if len(codes) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sweet is the only product of offers %s; update or delete them first", strings.Join(codes, ", "))).
				WithDetails(map[string]any{"offer_codes": codes}).
				WithReason(ReasonSoleOfferProduct)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return mapLookupErr(err)
	}
	if s.offers != nil {
		// the delete already committed; a stale entry lasts one cache TTL
		_ = s.offers.Invalidate(ctx)
	}
	return nil
}

func (s *service) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ExistingIDs(ctx, ids)
}

// MaxPrice bounds a size price so a full cart line stays well inside int64.
const MaxPrice int64 = 10_000_000

func validateSweet(name string, sizes []Size, tags []string) ([]models.SweetSize, []models.SweetTag, error) {
	fields := map[string]string{}
	if strings.TrimSpace(name) == "" {
		fields["name"] = "name is required"
	}
	if len(sizes) == 0 {
		fields["sizes"] = "at least one size is required"
	}

	rows := make([]models.SweetSize, 0, len(sizes))
	seen := map[string]struct{}{}
	for i, sz := range sizes {
		label := strings.TrimSpace(sz.Label)
		switch {
		case label == "":
			fields[fmt.Sprintf("sizes[%d].label", i)] = "label is required"
		case sz.Price < 0:
			fields[fmt.Sprintf("sizes[%d].price", i)] = "price must not be negative"
		case sz.Price > MaxPrice:
			fields[fmt.Sprintf("sizes[%d].price", i)] = fmt.Sprintf("price must not exceed %d", MaxPrice)
		}
		if _, dup := seen[label]; dup && label != "" {
			fields[fmt.Sprintf("sizes[%d].label", i)] = fmt.Sprintf("duplicate size %q", label)
		}
		seen[label] = struct{}{}
		rows = append(rows, models.SweetSize{Label: label, Price: sz.Price, Position: i})
	}

	if len(fields) > 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sweet").WithDetails(fields)
	}
	return rows, normalizeTags(tags), nil
}

func normalizeTags(tags []string) []models.SweetTag {
	seen := map[string]struct{}{}
	out := make([]models.SweetTag, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, models.SweetTag{Tag: t})
	}
	return out
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "sweet not found")
	}
	return asTyped(err, "load sweet")
}

func asTyped(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "sweet not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
