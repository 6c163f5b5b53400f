package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Offer is a promotional code granting a percentage discount within a time window.
type Offer struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Title       string         `gorm:"column:title;not null"`
	Description string         `gorm:"column:description"`
	Discount    int            `gorm:"column:discount;not null"`
	Code        string         `gorm:"column:code;not null;uniqueIndex:offers_code_key"`
	StartDate   time.Time      `gorm:"column:start_date;not null"`
	EndDate     time.Time      `gorm:"column:end_date;not null"`
	IsActive    bool           `gorm:"column:is_active;not null"`
	BannerColor string         `gorm:"column:banner_color;not null"`
	TextColor   string         `gorm:"column:text_color;not null"`
	Products    []OfferProduct `gorm:"foreignKey:OfferID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Offer) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OfferProduct restricts an offer to a sweet. An offer without rows applies to every sweet.
type OfferProduct struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OfferID uuid.UUID `gorm:"column:offer_id;type:uuid;not null;uniqueIndex:offer_products_offer_sweet_key"`
	SweetID uuid.UUID `gorm:"column:sweet_id;type:uuid;not null;uniqueIndex:offer_products_offer_sweet_key"`
}

func (p *OfferProduct) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
