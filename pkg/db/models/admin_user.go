package models

import (
	"time"

	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminUser is a back-office account allowed to manage sweets and offers.
type AdminUser struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Username     string          `gorm:"column:username;not null;uniqueIndex:admin_users_username_key"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	Role         enums.AdminRole `gorm:"column:role;not null"`
	LastLoginAt  *time.Time      `gorm:"column:last_login_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *AdminUser) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
