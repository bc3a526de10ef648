package kvstore

const (
	sessionPrefix  = "session:"
	cartPrefix     = "cart:"
	orderPrefix    = "order:"
	checkoutPrefix = "checkout:"

	// OrdersKey holds the global list of locally persisted orders.
	OrdersKey = "orders"
)

func SessionKey(sessionID string) string { return sessionPrefix + sessionID }

func CartKey(sessionID string) string { return cartPrefix + sessionID }

func OrderKey(orderID string) string { return orderPrefix + orderID }

func CheckoutKey(sessionID, idempotencyKey string) string {
	return checkoutPrefix + sessionID + ":" + idempotencyKey
}
