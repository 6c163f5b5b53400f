package admins

import (
	"time"

	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	"github.com/google/uuid"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AdminDTO is the public view of an admin account.
type AdminDTO struct {
	ID          uuid.UUID       `json:"id"`
	Username    string          `json:"username"`
	Role        enums.AdminRole `json:"role"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LoginResponse struct {
	TokenPair
	Admin AdminDTO `json:"admin"`
}

func FromModel(m *models.AdminUser) AdminDTO {
	return AdminDTO{
		ID:          m.ID,
		Username:    m.Username,
		Role:        m.Role,
		LastLoginAt: m.LastLoginAt,
	}
}
