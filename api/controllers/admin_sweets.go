package controllers

import (
	"net/http"

	"github.com/angelmondragon/sweetshop-backend/api/responses"
	"github.com/angelmondragon/sweetshop-backend/api/validators"
	"github.com/angelmondragon/sweetshop-backend/internal/catalog"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

type sizePayload struct {
	Label string `json:"label" validate:"required"`
	Price int64  `json:"price" validate:"min=0"`
}

type createSweetRequest struct {
	Name        string        `json:"name" validate:"required"`
	Description string        `json:"description"`
	Image       string        `json:"image"`
	Featured    bool          `json:"featured"`
	Sizes       []sizePayload `json:"sizes" validate:"required,min=1,dive"`
	Tags        []string      `json:"tags"`
}

type updateSweetRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Image       *string        `json:"image"`
	Featured    *bool          `json:"featured"`
	Sizes       *[]sizePayload `json:"sizes"`
	Tags        *[]string      `json:"tags"`
}

func toSizes(in []sizePayload) []catalog.Size {
	out := make([]catalog.Size, 0, len(in))
	for _, s := range in {
		out = append(out, catalog.Size{Label: s.Label, Price: s.Price})
	}
	return out
}

func (r updateSweetRequest) toInput() catalog.UpdateInput {
	input := catalog.UpdateInput{
		Name:        r.Name,
		Description: r.Description,
		Image:       r.Image,
		Featured:    r.Featured,
		Tags:        r.Tags,
	}
	if r.Sizes != nil {
		sizes := toSizes(*r.Sizes)
		input.Sizes = &sizes
	}
	return input
}

type AdminSweetHandlers struct {
	Catalog catalog.Service
	Logger  *logger.Logger
}

func (h AdminSweetHandlers) List() http.HandlerFunc {
	return SweetsList(h.Catalog, h.Logger)
}

func (h AdminSweetHandlers) Get() http.HandlerFunc {
	return SweetsGet(h.Catalog, h.Logger)
}

func (h AdminSweetHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSweetRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		sweet, err := h.Catalog.Create(r.Context(), catalog.SweetInput{
			Name:        req.Name,
			Description: req.Description,
			Image:       req.Image,
			Featured:    req.Featured,
			Sizes:       toSizes(req.Sizes),
			Tags:        req.Tags,
		})
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteCreated(w, sweet)
	}
}

func (h AdminSweetHandlers) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "sweetId")
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		var req updateSweetRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		sweet, err := h.Catalog.Update(r.Context(), id, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, sweet)
	}
}

func (h AdminSweetHandlers) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "sweetId")
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		if err := h.Catalog.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
