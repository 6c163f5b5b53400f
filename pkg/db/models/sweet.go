package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sweet is a catalog product sold in one or more sizes.
type Sweet struct {
	ID          uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	Name        string      `gorm:"column:name;not null"`
	Description string      `gorm:"column:description"`
	Image       string      `gorm:"column:image"`
	Featured    bool        `gorm:"column:featured;not null"`
	Sizes       []SweetSize `gorm:"foreignKey:SweetID;constraint:OnDelete:CASCADE"`
	Tags        []SweetTag  `gorm:"foreignKey:SweetID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Sweet) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SweetSize is a purchasable (label, price) option. Price is in whole currency units.
type SweetSize struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SweetID  uuid.UUID `gorm:"column:sweet_id;type:uuid;not null;uniqueIndex:sweet_sizes_sweet_label_key"`
	Label    string    `gorm:"column:label;not null;uniqueIndex:sweet_sizes_sweet_label_key"`
	Price    int64     `gorm:"column:price;not null"`
	Position int       `gorm:"column:position;not null"`
}

func (s *SweetSize) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type SweetTag struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SweetID uuid.UUID `gorm:"column:sweet_id;type:uuid;not null;index"`
	Tag     string    `gorm:"column:tag;not null"`
}

func (t *SweetTag) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
