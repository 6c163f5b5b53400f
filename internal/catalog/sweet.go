package catalog

import (
	"time"

	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
)

// Size is a purchasable option of a sweet.
type Size struct {
	Label string `json:"label"`
	Price int64  `json:"price"`
}

// Sweet is the public catalog view of a product.
type Sweet struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Featured    bool      `json:"featured"`
	Sizes       []Size    `json:"sizes"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FromModel converts a persisted sweet. Sizes keep their stored position order.
func FromModel(m models.Sweet) Sweet {
	sizes := make([]Size, 0, len(m.Sizes))
	for _, s := range m.Sizes {
		sizes = append(sizes, Size{Label: s.Label, Price: s.Price})
	}
	tags := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		tags = append(tags, t.Tag)
	}
	return Sweet{
		ID:          m.ID.String(),
		Name:        m.Name,
		Description: m.Description,
		Image:       m.Image,
		Featured:    m.Featured,
		Sizes:       sizes,
		Tags:        tags,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func fromModels(rows []models.Sweet) []Sweet {
	out := make([]Sweet, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
