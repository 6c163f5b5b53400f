package controllers

import (
	"net/http"

	"github.com/angelmondragon/sweetshop-backend/api/responses"
	"github.com/angelmondragon/sweetshop-backend/api/validators"
	"github.com/angelmondragon/sweetshop-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	"github.com/angelmondragon/sweetshop-backend/pkg/pagination"
)

const maxQueryLength = 100

// SweetsList serves the public catalog with optional featured/tag/q filters.
func SweetsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func SweetsGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "sweetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sweet, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sweet)
	}
}

func parseListParams(r *http.Request) (catalog.ListParams, error) {
	featured, err := validators.ParseQueryBool(r, "featured")
	if err != nil {
		return catalog.ListParams{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return catalog.ListParams{}, err
	}
	q := r.URL.Query()
	return catalog.ListParams{
		Featured: featured,
		Tag:      validators.SanitizeString(q.Get("tag"), maxQueryLength),
		Query:    validators.SanitizeString(q.Get("q"), maxQueryLength),
		Pagination: pagination.Params{
			Limit:  limit,
			Cursor: q.Get("cursor"),
		},
	}, nil
}
