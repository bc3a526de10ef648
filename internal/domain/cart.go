package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Price is a unit price as received from the catalog or a client. It is kept as
// text so malformed values survive storage; Decimal parses it on demand.
type Price string

var priceReplacer = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "", "USD", "", "EUR", "")

// Decimal returns the parsed amount, or zero when the value is not a number.
func (p Price) Decimal() decimal.Decimal {
	raw := priceReplacer.Replace(strings.TrimSpace(string(p)))
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func PriceFromDecimal(d decimal.Decimal) Price {
	return Price(d.StringFixed(2))
}

type CartItem struct {
	ProductID   string    `json:"productId"`
	Variant     string    `json:"variant,omitempty"`
	Quantity    int       `json:"quantity"`
	UnitPrice   Price     `json:"unitPrice"`
	DisplayName string    `json:"displayName"`
	AddedAt     time.Time `json:"addedAt"`
}

// LineTotal is UnitPrice × Quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Decimal().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SameLine reports whether the item is identified by (productID, variant).
func (i CartItem) SameLine(productID, variant string) bool {
	return i.ProductID == productID && i.Variant == variant
}

type Cart struct {
	SessionID string     `json:"sessionId"`
	Items     []CartItem `json:"items"`
}

// Total sums every line; malformed prices contribute zero.
func (c Cart) Total() decimal.Decimal {
	return SumItems(c.Items)
}

// ItemCount is the total quantity across lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func SumItems(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// CloneItems returns a deep copy so later cart edits cannot leak into snapshots.
func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return []CartItem{}
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}

// UnmarshalJSON accepts a JSON string or a bare number.
func (p *Price) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*p = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		*p = Price(raw)
		return nil
	}
	*p = Price(s)
	return nil
}
