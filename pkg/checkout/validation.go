package checkout

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
)

var (
	phonePattern   = regexp.MustCompile(`^[0-9]{10}$`)
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// DeliveryDetails is what the shopper fills in on the checkout form.
type DeliveryDetails struct {
	Name          string              `json:"name"`
	Email         string              `json:"email,omitempty"`
	Phone         string              `json:"phone"`
	Address       string              `json:"address"`
	Pincode       string              `json:"pincode"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Instructions  string              `json:"instructions,omitempty"`
}

// FieldViolation describes one rejected delivery field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Normalize trims every field and lowercases the payment method.
func (d DeliveryDetails) Normalize() DeliveryDetails {
	return DeliveryDetails{
		Name:          strings.TrimSpace(d.Name),
		Email:         strings.TrimSpace(d.Email),
		Phone:         strings.TrimSpace(d.Phone),
		Address:       strings.TrimSpace(d.Address),
		Pincode:       strings.TrimSpace(d.Pincode),
		PaymentMethod: enums.PaymentMethod(strings.ToLower(strings.TrimSpace(string(d.PaymentMethod)))),
		Instructions:  strings.TrimSpace(d.Instructions),
	}
}

// ValidateDelivery checks the normalized details and reports every bad field at once.
func ValidateDelivery(details DeliveryDetails) error {
	d := details.Normalize()
	var violations []FieldViolation
	add := func(field, message string) {
		violations = append(violations, FieldViolation{Field: field, Message: message})
	}

	if d.Name == "" {
		add("name", "name is required")
	}
	if d.Email != "" {
		if _, err := mail.ParseAddress(d.Email); err != nil {
			add("email", "email is invalid")
		}
	}
	if !phonePattern.MatchString(d.Phone) {
		add("phone", "phone must be 10 digits")
	}
	if d.Address == "" {
		add("address", "address is required")
	}
	if !pincodePattern.MatchString(d.Pincode) {
		add("pincode", "pincode must be 6 digits")
	}
	if !d.PaymentMethod.IsValid() {
		add("payment_method", "payment method must be one of card, upi or cod")
	}

	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery details for %d field(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
