package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/sweetshop-backend/internal/admins"
	"github.com/angelmondragon/sweetshop-backend/internal/catalog"
	"github.com/angelmondragon/sweetshop-backend/internal/offers"
	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	"github.com/angelmondragon/sweetshop-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	generatedPasswordLength = 16
	festivalOfferDays       = 90
	festivalOfferSweets     = 2
)

type adminStore interface {
	FindByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	Create(ctx context.Context, admin *models.AdminUser) (*models.AdminUser, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sweetCounter interface {
	Count(ctx context.Context) (int64, error)
}

type Params struct {
	Admins   adminStore
	Counter  sweetCounter
	Catalog  catalog.Service
	Offers   offers.Service
	Config   config.SeedConfig
	Password config.PasswordConfig
	Logger   *logger.Logger
	Clock    func() time.Time
}

// Result summarizes what a seed run changed. GeneratedPassword is only set
// when a new admin was created without a configured password.
type Result struct {
	AdminCreated      bool
	AdminUpdated      bool
	GeneratedPassword string
	SweetsCreated     int
	OffersCreated     int
}

// Seeder bootstraps the default admin and a sample catalog.
type Seeder struct {
	p Params
}

func New(p Params) (*Seeder, error) {
	if p.Admins == nil {
		return nil, errors.New("admin store is required")
	}
	if p.Counter == nil {
		return nil, errors.New("sweet counter is required")
	}
	if p.Catalog == nil {
		return nil, errors.New("catalog service is required")
	}
	if p.Offers == nil {
		return nil, errors.New("offers service is required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return &Seeder{p: p}, nil
}

// Run is idempotent: the admin is upserted and the sample catalog is only
// inserted while the catalog is empty.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	result := &Result{}
	if err := s.seedAdmin(ctx, result); err != nil {
		return nil, err
	}

	count, err := s.p.Counter.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sweets: %w", err)
	}
	if count > 0 {
		s.p.Logger.Info(s.p.Logger.WithField(ctx, "sweets", count), "catalog already populated, skipping sample data")
		return result, nil
	}

	created := make([]uuid.UUID, 0, len(sampleSweets()))
	for _, input := range sampleSweets() {
		sweet, err := s.p.Catalog.Create(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("create sweet %q: %w", input.Name, err)
		}
		created = append(created, uuid.MustParse(sweet.ID))
		result.SweetsCreated++
	}

	appliesTo := created
	if len(appliesTo) > festivalOfferSweets {
		appliesTo = appliesTo[:festivalOfferSweets]
	}
	now := s.p.Clock().UTC()
	if _, err := s.p.Offers.Create(ctx, offers.CreateInput{
		Title:       "Festival Special",
		Description: "Get 15% off on all festive sweets!",
		Discount:    15,
		Code:        "FESTIVAL15",
		StartDate:   now.Truncate(24 * time.Hour),
		EndDate:     now.Truncate(24*time.Hour).AddDate(0, 0, festivalOfferDays),
		AppliesTo:   appliesTo,
		BannerColor: offers.DefaultBannerColor,
		TextColor:   offers.DefaultTextColor,
	}); err != nil {
		return nil, fmt.Errorf("create sample offer: %w", err)
	}
	result.OffersCreated++

	s.p.Logger.Info(s.p.Logger.WithFields(ctx, map[string]any{
		"sweets": result.SweetsCreated,
		"offers": result.OffersCreated,
	}), "sample catalog seeded")
	return result, nil
}

func (s *Seeder) seedAdmin(ctx context.Context, result *Result) error {
	username := admins.NormalizeUsername(s.p.Config.AdminUsername)
	if username == "" {
		return errors.New("seed admin username is required")
	}
	password := s.p.Config.AdminPassword

	existing, err := s.p.Admins.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	if existing != nil {
		if password == "" {
			return nil
		}
		hash, err := security.HashPassword(password, s.p.Password)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		if err := s.p.Admins.UpdatePasswordHash(ctx, existing.ID, hash); err != nil {
			return fmt.Errorf("update admin password: %w", err)
		}
		result.AdminUpdated = true
		return nil
	}

	if password == "" {
		password, err = security.GenerateTempPassword(generatedPasswordLength)
		if err != nil {
			return fmt.Errorf("generate admin password: %w", err)
		}
		result.GeneratedPassword = password
	}
	hash, err := security.HashPassword(password, s.p.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := s.p.Admins.Create(ctx, &models.AdminUser{
		Username:     username,
		PasswordHash: hash,
		Role:         enums.AdminRoleOwner,
	}); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	result.AdminCreated = true
	s.p.Logger.Info(s.p.Logger.WithField(ctx, "username", username), "seed admin created")
	return nil
}
