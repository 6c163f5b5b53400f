package offers

import (
	"errors"

	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
)

var (
	ErrEmptyCode            = errors.New("promo code is empty")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired promo code")
	ErrNotApplicableToCart  = errors.New("promo code does not apply to the items in your cart")
)

const (
	ReasonEmptyCode            = "EMPTY_CODE"
	ReasonInvalidOrExpiredCode = "INVALID_OR_EXPIRED_CODE"
	ReasonNotApplicableToCart  = "NOT_APPLICABLE_TO_CART"
)

// Reason maps an evaluator sentinel to its public reason string.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCode):
		return ReasonEmptyCode
	case errors.Is(err, ErrInvalidOrExpiredCode):
		return ReasonInvalidOrExpiredCode
	case errors.Is(err, ErrNotApplicableToCart):
		return ReasonNotApplicableToCart
	default:
		return ""
	}
}

// AsAPIError wraps evaluator sentinels into validation errors carrying the
// reason in details. Other errors are returned unchanged.
func AsAPIError(err error) error {
	reason := Reason(err)
	if reason == "" {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).WithReason(reason)
}
