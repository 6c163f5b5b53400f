package offers

import (
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
)

// FromModel converts a persisted offer into its pricing view.
func FromModel(m models.Offer) Offer {
	appliesTo := make([]string, 0, len(m.Products))
	for _, p := range m.Products {
		appliesTo = append(appliesTo, p.SweetID.String())
	}
	return Offer{
		ID:          m.ID.String(),
		Title:       m.Title,
		Description: m.Description,
		Discount:    m.Discount,
		Code:        m.Code,
		StartDate:   m.StartDate.UTC(),
		EndDate:     m.EndDate.UTC(),
		IsActive:    m.IsActive,
		AppliesTo:   appliesTo,
		BannerColor: m.BannerColor,
		TextColor:   m.TextColor,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func fromModels(rows []models.Offer) []Offer {
	out := make([]Offer, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
