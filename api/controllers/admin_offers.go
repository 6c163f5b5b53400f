package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sweetshop-backend/api/responses"
	"github.com/angelmondragon/sweetshop-backend/api/validators"
	"github.com/angelmondragon/sweetshop-backend/internal/offers"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

type createOfferRequest struct {
	Title       string      `json:"title" validate:"required"`
	Description string      `json:"description"`
	Discount    int         `json:"discount" validate:"min=0,max=100"`
	Code        string      `json:"code" validate:"required,promocode"`
	StartDate   time.Time   `json:"start_date" validate:"required"`
	EndDate     time.Time   `json:"end_date" validate:"required,gtefield=StartDate"`
	IsActive    *bool       `json:"is_active"`
	AppliesTo   []uuid.UUID `json:"applies_to"`
	BannerColor string      `json:"banner_color" validate:"omitempty,hexcolor"`
	TextColor   string      `json:"text_color" validate:"omitempty,hexcolor"`
}

type updateOfferRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Discount    *int         `json:"discount" validate:"omitempty,min=0,max=100"`
	Code        *string      `json:"code" validate:"omitempty,promocode"`
	StartDate   *time.Time   `json:"start_date"`
	EndDate     *time.Time   `json:"end_date"`
	IsActive    *bool        `json:"is_active"`
	AppliesTo   *[]uuid.UUID `json:"applies_to"`
	BannerColor *string      `json:"banner_color" validate:"omitempty,hexcolor"`
	TextColor   *string      `json:"text_color" validate:"omitempty,hexcolor"`
}

type AdminOfferHandlers struct {
	Offers offers.Service
	Logger *logger.Logger
}

func (h AdminOfferHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly, err := validators.ParseQueryBool(r, "active")
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		list, err := h.Offers.List(r.Context(), activeOnly != nil && *activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		if list == nil {
			list = []offers.Offer{}
		}
		responses.WriteSuccess(w, list)
	}
}

func (h AdminOfferHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		offer, err := h.Offers.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

func (h AdminOfferHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOfferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		offer, err := h.Offers.Create(r.Context(), offers.CreateInput{
			Title:       req.Title,
			Description: req.Description,
			Discount:    req.Discount,
			Code:        req.Code,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			IsActive:    req.IsActive,
			AppliesTo:   req.AppliesTo,
			BannerColor: req.BannerColor,
			TextColor:   req.TextColor,
		})
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteCreated(w, offer)
	}
}

func (h AdminOfferHandlers) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		var req updateOfferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		offer, err := h.Offers.Update(r.Context(), id, offers.UpdateInput{
			Title:       req.Title,
			Description: req.Description,
			Discount:    req.Discount,
			Code:        req.Code,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			IsActive:    req.IsActive,
			AppliesTo:   req.AppliesTo,
			BannerColor: req.BannerColor,
			TextColor:   req.TextColor,
		})
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

func (h AdminOfferHandlers) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		if err := h.Offers.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
