package remote

import (
	"time"

	"storefront/internal/domain"
)

// Order is the order record as the remote service stores and returns it.
type Order struct {
	OrderID   string             `json:"order_id"`
	SessionID string             `json:"session_id"`
	UserID    string             `json:"user_id,omitempty"`
	Customer  Customer           `json:"customer"`
	Items     []Item             `json:"items"`
	Shipping  Shipping           `json:"shipping"`
	Payment   Payment            `json:"payment"`
	Subtotal  domain.LooseAmount `json:"subtotal"`
	Tax       domain.LooseAmount `json:"tax"`
	Total     domain.LooseAmount `json:"total"`
	Status    string             `json:"status"`
	CreatedAt domain.LooseTime   `json:"created_at"`
}

type Customer struct {
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type Item struct {
	ProductID string           `json:"product_id"`
	Variant   string           `json:"variant,omitempty"`
	Quantity  int              `json:"quantity"`
	UnitPrice domain.Price     `json:"unit_price"`
	Name      string           `json:"name"`
	AddedAt   domain.LooseTime `json:"added_at"`
}

type Shipping struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Region   string `json:"region,omitempty"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

type Payment struct {
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

// OrderPayload is the body of POST /orders and the shape the order API
// serves. Amounts are strings and timestamps are unix seconds.
type OrderPayload struct {
	OrderID   string        `json:"order_id"`
	SessionID string        `json:"session_id"`
	UserID    string        `json:"user_id,omitempty"`
	Customer  Customer      `json:"customer"`
	Items     []PayloadItem `json:"items"`
	Shipping  Shipping      `json:"shipping"`
	Payment   Payment       `json:"payment"`
	Subtotal  string        `json:"subtotal"`
	Tax       string        `json:"tax"`
	Total     string        `json:"total"`
	Status    string        `json:"status"`
	CreatedAt int64         `json:"created_at"`
}

type PayloadItem struct {
	ProductID string `json:"product_id"`
	Variant   string `json:"variant,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Name      string `json:"name"`
	AddedAt   int64  `json:"added_at"`
}

// CreateResponse answers POST /orders.
type CreateResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
	Error   string `json:"error,omitempty"`
}

// StatusRequest is the body of PATCH /orders/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type listResponse struct {
	Orders []Order `json:"orders"`
}

// FromDomain converts a canonical order into the remote request shape.
func FromDomain(o domain.Order) OrderPayload {
	items := make([]PayloadItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, PayloadItem{
			ProductID: it.ProductID,
			Variant:   it.Variant,
			Quantity:  it.Quantity,
			UnitPrice: string(it.UnitPrice),
			Name:      it.DisplayName,
			AddedAt:   unixOrZero(it.AddedAt),
		})
	}
	return OrderPayload{
		OrderID:   o.ID,
		SessionID: o.SessionID,
		UserID:    o.UserID,
		Customer: Customer{
			UserID:    o.Customer.UserID,
			SessionID: o.Customer.SessionID,
			Email:     o.Customer.Email,
			FirstName: o.Customer.FirstName,
			LastName:  o.Customer.LastName,
			Phone:     o.Customer.Phone,
		},
		Items: items,
		Shipping: Shipping{
			Name:     o.ShippingAddress.FullName,
			Company:  o.ShippingAddress.Company,
			Address1: o.ShippingAddress.Line1,
			Address2: o.ShippingAddress.Line2,
			City:     o.ShippingAddress.City,
			Region:   o.ShippingAddress.State,
			Zip:      o.ShippingAddress.PostalCode,
			Country:  o.ShippingAddress.Country,
		},
		Payment:   Payment{Method: o.Payment.Method, Reference: o.Payment.MaskedReference},
		Subtotal:  o.Subtotal.StringFixed(2),
		Tax:       o.Tax.StringFixed(2),
		Total:     o.GrandTotal.StringFixed(2),
		Status:    string(o.Status),
		CreatedAt: unixOrZero(o.CreatedAt),
	}
}

// ToDomain normalizes a remote record into the canonical order shape.
func (r Order) ToDomain() domain.Order {
	items := make([]domain.CartItem, 0, len(r.Items))
	for _, it := range r.Items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		items = append(items, domain.CartItem{
			ProductID:   it.ProductID,
			Variant:     it.Variant,
			Quantity:    qty,
			UnitPrice:   it.UnitPrice,
			DisplayName: it.Name,
			AddedAt:     it.AddedAt.Time,
		})
	}

	subtotal := r.Subtotal.Decimal
	if !r.Subtotal.Present {
		subtotal = domain.SumItems(items)
	}
	total := r.Total.Decimal
	if !r.Total.Present {
		total = subtotal.Add(r.Tax.Decimal)
	}

	sessionID := r.SessionID
	if sessionID == "" {
		sessionID = r.Customer.SessionID
	}
	userID := r.UserID
	if userID == "" {
		userID = r.Customer.UserID
	}

	return domain.Order{
		ID:        r.OrderID,
		SessionID: sessionID,
		UserID:    userID,
		Customer: domain.Customer{
			UserID:    userID,
			SessionID: sessionID,
			Email:     r.Customer.Email,
			FirstName: r.Customer.FirstName,
			LastName:  r.Customer.LastName,
			Phone:     r.Customer.Phone,
		},
		Items: items,
		ShippingAddress: domain.ShippingAddress{
			FullName:   r.Shipping.Name,
			Company:    r.Shipping.Company,
			Line1:      r.Shipping.Address1,
			Line2:      r.Shipping.Address2,
			City:       r.Shipping.City,
			State:      r.Shipping.Region,
			PostalCode: r.Shipping.Zip,
			Country:    r.Shipping.Country,
		},
		Payment:    domain.PaymentSummary{Method: r.Payment.Method, MaskedReference: r.Payment.Reference},
		Subtotal:   subtotal,
		Tax:        r.Tax.Decimal,
		GrandTotal: total,
		Status:     domain.NormalizeStatus(r.Status),
		Source:     domain.SourceRemote,
		CreatedAt:  r.CreatedAt.Time,
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
