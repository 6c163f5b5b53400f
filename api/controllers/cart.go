package controllers

import (
	"net/http"

	"github.com/angelmondragon/sweetshop-backend/api/responses"
	"github.com/angelmondragon/sweetshop-backend/api/validators"
	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	"github.com/angelmondragon/sweetshop-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

type cartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1,max=999"`
}

// cartSnapshot is returned when a cart change was stored but the session
// could not be priced afterwards. Clients refetch GET /cart for totals.
type cartSnapshot struct {
	Items         []cart.LineItem `json:"items"`
	ItemCount     int             `json:"item_count"`
	TotalsPending bool            `json:"totals_pending"`
}

// CartHandlers serves the session cart. Every response is the priced quote
// so the storefront always renders totals from the server.
type CartHandlers struct {
	Cart     cart.Service
	Checkout checkout.Service
	Logger   *logger.Logger
}

func (h CartHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respondQuote(w, r, http.StatusOK)
	}
}

func (h CartHandlers) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		updated, err := h.Cart.AddItem(r.Context(), sid, cart.AddItemInput{
			ProductID: payload.ProductID,
			Size:      payload.Size,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		h.respondMutation(w, r, http.StatusCreated, updated)
	}
}

func (h CartHandlers) UpdateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		updated, err := h.Cart.UpdateQuantity(r.Context(), sid, cart.UpdateQuantityInput{
			ProductID: payload.ProductID,
			Size:      payload.Size,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		h.respondMutation(w, r, http.StatusOK, updated)
	}
}

// RemoveItem reads product_id and size from the query string. Removing a
// missing line succeeds.
func (h CartHandlers) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		q := r.URL.Query()
		productID := validators.SanitizeString(q.Get("product_id"), maxQueryLength)
		size := validators.SanitizeString(q.Get("size"), maxQueryLength)
		if productID == "" || size == "" {
			responses.WriteError(r.Context(), h.Logger, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id and size are required"))
			return
		}
		updated, err := h.Cart.RemoveItem(r.Context(), sid, productID, size)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		h.respondMutation(w, r, http.StatusOK, updated)
	}
}

func (h CartHandlers) Clear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		if err := h.Cart.Clear(r.Context(), sid); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func (h CartHandlers) respondQuote(w http.ResponseWriter, r *http.Request, status int) {
	sid, err := sessionID(r)
	if err != nil {
		responses.WriteError(r.Context(), h.Logger, w, err)
		return
	}
	quote, err := h.Checkout.Quote(r.Context(), sid)
	if err != nil {
		responses.WriteError(r.Context(), h.Logger, w, err)
		return
	}
	responses.WriteSuccessStatus(w, status, quote)
}

// respondMutation prices the session after a stored change. A pricing failure
// must not read as a failed write, so it falls back to the stored lines.
func (h CartHandlers) respondMutation(w http.ResponseWriter, r *http.Request, status int, updated cart.Cart) {
	sid, err := sessionID(r)
	if err != nil {
		responses.WriteError(r.Context(), h.Logger, w, err)
		return
	}
	quote, err := h.Checkout.Quote(r.Context(), sid)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error(r.Context(), "cart.quote_after_write_failed", err)
		}
		responses.WriteSuccessStatus(w, status, cartSnapshot{
			Items:         updated.Items(),
			ItemCount:     updated.ItemCount(),
			TotalsPending: true,
		})
		return
	}
	responses.WriteSuccessStatus(w, status, quote)
}
