package order

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront/internal/domain"
)

const (
	PaymentCard         = "card"
	PaymentBankTransfer = "bank_transfer"
	PaymentInvoice      = "invoice"
)

// CheckoutInput is what a shopper submits at checkout. The cart itself comes
// from the session.
type CheckoutInput struct {
	Customer        CustomerInput `json:"customer"`
	ShippingAddress ShippingInput `json:"shippingAddress"`
	Payment         PaymentInput  `json:"payment"`
	// IdempotencyKey is optional; when empty one is derived from the cart.
	IdempotencyKey string `json:"-"`
}

type CustomerInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"required,min=5,max=32"`
}

type ShippingInput struct {
	FullName   string `json:"fullName" validate:"required,max=200"`
	Company    string `json:"company" validate:"max=200"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,min=2,max=56"`
}

// PaymentInput carries the instrument only long enough to mask it.
type PaymentInput struct {
	Method     string `json:"method" validate:"required,oneof=card bank_transfer invoice"`
	CardNumber string `json:"cardNumber" validate:"omitempty,number,min=12,max=19,credit_card"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalize trims every field and strips card number separators.
func (in *CheckoutInput) normalize() {
	for _, p := range []*string{
		&in.Customer.Email, &in.Customer.FirstName, &in.Customer.LastName, &in.Customer.Phone,
		&in.ShippingAddress.FullName, &in.ShippingAddress.Company, &in.ShippingAddress.Line1,
		&in.ShippingAddress.Line2, &in.ShippingAddress.City, &in.ShippingAddress.State,
		&in.ShippingAddress.PostalCode, &in.ShippingAddress.Country,
		&in.Payment.Method, &in.IdempotencyKey,
	} {
		*p = strings.TrimSpace(*p)
	}
	in.Customer.Email = strings.ToLower(in.Customer.Email)
	in.Payment.Method = strings.ToLower(in.Payment.Method)
	in.Payment.CardNumber = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, in.Payment.CardNumber)
}

// Validate normalizes in and reports every invalid field at once.
func (in *CheckoutInput) Validate() error {
	in.normalize()
	fields := make(map[string]string)

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields[fieldPath(fe)] = fieldMessage(fe)
		}
	}
	if in.Payment.Method == PaymentCard && in.Payment.CardNumber == "" {
		fields["payment.cardNumber"] = "This field is required"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "number":
		return "Must contain digits only"
	case "credit_card":
		return "Invalid card number"
	default:
		return "Invalid value"
	}
}

func (in CheckoutInput) shippingAddress() domain.ShippingAddress {
	s := in.ShippingAddress
	return domain.ShippingAddress{
		FullName:   s.FullName,
		Company:    s.Company,
		Line1:      s.Line1,
		Line2:      s.Line2,
		City:       s.City,
		State:      s.State,
		PostalCode: s.PostalCode,
		Country:    strings.ToUpper(s.Country),
	}
}

// paymentSummary keeps the method and a masked reference; the raw card
// number goes no further.
func (in CheckoutInput) paymentSummary() domain.PaymentSummary {
	ref := in.Payment.Method
	if in.Payment.Method == PaymentCard {
		digits := in.Payment.CardNumber
		if len(digits) > 4 {
			digits = digits[len(digits)-4:]
		}
		ref = "**** " + digits
	}
	return domain.PaymentSummary{Method: in.Payment.Method, MaskedReference: ref}
}
