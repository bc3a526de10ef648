package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

const (
	sessionHeader     = "X-Session-Token"
	idempotencyHeader = "Idempotency-Key"

	identityCtxKey = "session.identity"
)

type sessionResponse struct {
	Session   *domain.SessionIdentity `json:"session"`
	Token     string                  `json:"token"`
	ExpiresIn int                     `json:"expiresIn"`
}

// sessionMiddleware resolves the caller's identity from X-Session-Token, minting
// a guest identity when the token is absent or stale. A newly issued token is
// echoed in the response header.
func sessionMiddleware(sessions sessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(sessionHeader))
		identity, issued, created, err := sessions.GetOrCreate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session unavailable"})
			return
		}
		if created {
			c.Header(sessionHeader, issued)
		}
		c.Set(identityCtxKey, identity)
		c.Next()
	}
}

func identityFrom(c *gin.Context) *domain.SessionIdentity {
	v, ok := c.Get(identityCtxKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*domain.SessionIdentity)
	return identity
}

// setIdentity swaps the identity for the rest of the request and hands the
// client its new token.
func setIdentity(c *gin.Context, identity *domain.SessionIdentity, token string) {
	c.Set(identityCtxKey, identity)
	c.Header(sessionHeader, token)
}

func (h *handlers) createSession(c *gin.Context) {
	token := strings.TrimSpace(c.GetHeader(sessionHeader))
	identity, issued, created, err := h.deps.SessionSvc.GetOrCreate(c.Request.Context(), token)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session unavailable"})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		c.Header(sessionHeader, issued)
	}
	c.JSON(status, sessionResponse{
		Session:   identity,
		Token:     issued,
		ExpiresIn: h.deps.SessionSvc.TTLSeconds(),
	})
}
