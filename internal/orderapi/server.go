// Package orderapi serves the remote order-persistence endpoints the
// storefront's remote client talks to: POST /orders, GET /orders/:id,
// PATCH /orders/:id/status and GET /users/:userId/orders, in the snake_case
// wire shape.
package orderapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

type orderStore interface {
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (domain.Order, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Addr string
	// APIKey, when set, must be presented as a bearer token.
	APIKey string
}

// Server wraps the HTTP server setup.
type Server struct {
	httpServer *http.Server
}

func New(cfg Config, log *zap.Logger, orders orderStore, db pinger) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg.APIKey, logger.OrNop(log), orders, db),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// NewRouter wires the order routes. db may be nil, in which case /readyz
// reports unavailable.
func NewRouter(apiKey string, log *zap.Logger, orders orderStore, db pinger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(logger.GinMiddleware(log), logger.Recovery(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not reachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	h := &handlers{orders: orders, now: time.Now, log: log.Named("orderapi")}
	api := router.Group("/", apiKeyMiddleware(apiKey))
	api.POST("/orders", h.create)
	api.GET("/orders/:orderId", h.get)
	api.PATCH("/orders/:orderId/status", h.updateStatus)
	api.GET("/users/:userId/orders", h.listByUser)
	return router
}

func apiKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == header || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
