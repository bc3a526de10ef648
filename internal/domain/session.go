package domain

import "time"

type SessionKind string

const (
	SessionGuest         SessionKind = "guest"
	SessionAuthenticated SessionKind = "authenticated"
)

// SessionIdentity scopes a cart and links orders to their owner.
type SessionIdentity struct {
	Kind      SessionKind `json:"kind"`
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"createdAt"`
	UserID    string      `json:"userId,omitempty"`
	Name      string      `json:"name,omitempty"`
	Email     string      `json:"email,omitempty"`
}

func (s SessionIdentity) Authenticated() bool {
	return s.Kind == SessionAuthenticated && s.UserID != ""
}

// Profile carries the verified account fields used to promote a guest session.
type Profile struct {
	UserID string
	Name   string
	Email  string
}
