// Package enums holds the closed string sets stored in the database and sent
// over the API.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

// set is the shared membership check behind each enum. Parsing is lenient
// about case and surrounding space because values arrive from forms and
// environment variables.
type set[T ~string] struct {
	kind   string
	values []T
}

func (s set[T]) has(v T) bool { return slices.Contains(s.values, v) }

func (s set[T]) parse(raw string) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if !s.has(v) {
		var zero T
		return zero, fmt.Errorf("invalid %s %q", s.kind, raw)
	}
	return v, nil
}

// AdminRole scopes what a back-office account may manage. Owners may also
// delete catalog entries.
type AdminRole string

const (
	AdminRoleOwner   AdminRole = "owner"
	AdminRoleManager AdminRole = "manager"
)

var adminRoles = set[AdminRole]{kind: "admin role", values: []AdminRole{AdminRoleOwner, AdminRoleManager}}

func (r AdminRole) String() string { return string(r) }
func (r AdminRole) IsValid() bool  { return adminRoles.has(r) }

func ParseAdminRole(raw string) (AdminRole, error) { return adminRoles.parse(raw) }

// PaymentMethod records how a shopper intends to pay. Nothing is captured;
// the value travels with the submitted order.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodCOD  PaymentMethod = "cod"
)

var paymentMethods = set[PaymentMethod]{kind: "payment method", values: []PaymentMethod{PaymentMethodCard, PaymentMethodUPI, PaymentMethodCOD}}

func (p PaymentMethod) String() string { return string(p) }
func (p PaymentMethod) IsValid() bool  { return paymentMethods.has(p) }

func ParsePaymentMethod(raw string) (PaymentMethod, error) { return paymentMethods.parse(raw) }

// PromoState is the checkout-level promo lifecycle. A session moves to
// promo_applied on a successful apply and back on remove or cart clear.
type PromoState string

const (
	PromoStateNone    PromoState = "no_promo"
	PromoStateApplied PromoState = "promo_applied"
)

func (p PromoState) String() string { return string(p) }
