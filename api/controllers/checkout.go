package controllers

import (
	"net/http"

	"github.com/angelmondragon/sweetshop-backend/api/responses"
	"github.com/angelmondragon/sweetshop-backend/api/validators"
	"github.com/angelmondragon/sweetshop-backend/internal/checkout"
	pkgcheckout "github.com/angelmondragon/sweetshop-backend/pkg/checkout"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

type applyPromoRequest struct {
	Code string `json:"code"`
}

// submitRequest is decoded without struct tags so that every bad field is
// reported together by pkg/checkout.ValidateDelivery.
type submitRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Pincode       string `json:"pincode"`
	PaymentMethod string `json:"payment_method"`
	Instructions  string `json:"instructions"`
}

func (s submitRequest) toDetails() pkgcheckout.DeliveryDetails {
	return pkgcheckout.DeliveryDetails{
		Name:          s.Name,
		Email:         s.Email,
		Phone:         s.Phone,
		Address:       s.Address,
		Pincode:       s.Pincode,
		PaymentMethod: enums.PaymentMethod(s.PaymentMethod),
		Instructions:  s.Instructions,
	}
}

type CheckoutHandlers struct {
	Checkout checkout.Service
	Logger   *logger.Logger
}

func (h CheckoutHandlers) Quote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		responses.WriteSuccess(w, quote)
	}
}

// ApplyPromo leaves the empty-code check to the evaluator so the shopper gets
// the EMPTY_CODE reason rather than a generic field error.
func (h CheckoutHandlers) ApplyPromo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		var payload applyPromoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		quote, err := h.Checkout.ApplyPromo(r.Context(), sid, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func (h CheckoutHandlers) RemovePromo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		quote, err := h.Checkout.RemovePromo(r.Context(), sid)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func (h CheckoutHandlers) Submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		var payload submitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		receipt, err := h.Checkout.Submit(r.Context(), sid, payload.toDetails())
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteCreated(w, receipt)
	}
}
