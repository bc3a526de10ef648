package order

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrEmptyCart = errors.New("cart is empty")

	// ErrSubmissionInFlight is returned while another checkout with the same
	// idempotency key has not settled.
	ErrSubmissionInFlight = errors.New("checkout already in progress")

	// ErrPersistFailed means neither the remote service nor the local ledger
	// holds the order. The cart is left intact.
	ErrPersistFailed = errors.New("order could not be stored")

	ErrInvalidTransition = errors.New("invalid order status transition")
)

// ValidationError lists checkout fields that failed validation, keyed by
// their JSON path (for example "shippingAddress.city").
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid checkout: " + strings.Join(names, ", ")
}
