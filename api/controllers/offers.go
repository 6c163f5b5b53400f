package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/sweetshop-backend/api/responses"
	"github.com/angelmondragon/sweetshop-backend/api/validators"
	"github.com/angelmondragon/sweetshop-backend/internal/offers"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

// OffersList returns every offer, or only live ones with ?active=true. The
// live list is served from the cached source the checkout also uses.
func OffersList(svc offers.Service, active offers.Source, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || active == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offers service unavailable"))
			return
		}

		activeOnly, err := validators.ParseQueryBool(r, "active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var list []offers.Offer
		if activeOnly != nil && *activeOnly {
			list, err = active.ListActive(r.Context(), time.Now())
		} else {
			list, err = svc.List(r.Context(), false)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if list == nil {
			list = []offers.Offer{}
		}
		responses.WriteSuccess(w, list)
	}
}
