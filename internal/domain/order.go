package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// CanTransition allows pending -> completed|cancelled only.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return s == OrderPending && (to == OrderCompleted || to == OrderCancelled)
}

// OrderSource records which store answered a read. It is informational only.
type OrderSource string

const (
	SourceRemote OrderSource = "remote"
	SourceLocal  OrderSource = "local"
)

type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Company    string `json:"company,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentSummary never carries raw credentials.
type PaymentSummary struct {
	Method          string `json:"method"`
	MaskedReference string `json:"maskedReference"`
}

type Order struct {
	ID              string          `json:"id"`
	SessionID       string          `json:"sessionId"`
	UserID          string          `json:"userId,omitempty"`
	Customer        Customer        `json:"customer"`
	Items           []CartItem      `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Payment         PaymentSummary  `json:"paymentSummary"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	GrandTotal      decimal.Decimal `json:"grandTotal"`
	Status          OrderStatus     `json:"status"`
	Source          OrderSource     `json:"source,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// OwnedBy applies the ownership rule: a userId on the order must match the
// caller's; otherwise the caller's session must be the one that placed it.
func (o Order) OwnedBy(caller SessionIdentity) bool {
	if o.UserID != "" {
		return caller.UserID != "" && caller.UserID == o.UserID
	}
	return o.SessionID != "" && caller.ID == o.SessionID
}
