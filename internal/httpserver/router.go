package httpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
	cartsvc "storefront/internal/service/cart"
	customersvc "storefront/internal/service/customer"
	ordersvc "storefront/internal/service/order"
	"storefront/internal/service/report"
)

type sessionService interface {
	GetOrCreate(ctx context.Context, token string) (*domain.SessionIdentity, string, bool, error)
	Promote(ctx context.Context, current *domain.SessionIdentity, profile domain.Profile) (*domain.SessionIdentity, string, error)
	Demote(ctx context.Context) (*domain.SessionIdentity, string, error)
	TTLSeconds() int
}

type cartService interface {
	Open(ctx context.Context, sessionID string) *cartsvc.Store
}

type checkoutService interface {
	Submit(ctx context.Context, identity *domain.SessionIdentity, cart ordersvc.Cart, in ordersvc.CheckoutInput) (ordersvc.Result, error)
}

type orderQuery interface {
	Get(ctx context.Context, caller *domain.SessionIdentity, orderID string) (domain.Order, error)
	ListForUser(ctx context.Context, caller *domain.SessionIdentity, limit int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error)
}

type reportService interface {
	Summarize(ctx context.Context) report.Summary
}

type customerService interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (*domain.Account, error)
}

type adminService interface {
	Login(email, password string) (string, error)
	Authorize(token string) (string, error)
	TTLSeconds() int
}

// Deps bundles the services the router exposes. CustomerSvc and AdminSvc are
// optional; their routes are only mounted when set.
type Deps struct {
	SessionSvc  sessionService
	CartSvc     cartService
	CheckoutSvc checkoutService
	OrderQuery  orderQuery
	ReportSvc   reportService
	CustomerSvc customerService
	AdminSvc    adminService

	// Readiness names the dependencies /readyz pings.
	Readiness   map[string]Pinger
	CORSOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.SessionSvc == nil:
		return errors.New("httpserver: session service required")
	case d.CartSvc == nil:
		return errors.New("httpserver: cart service required")
	case d.CheckoutSvc == nil:
		return errors.New("httpserver: checkout service required")
	case d.OrderQuery == nil:
		return errors.New("httpserver: order query required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(log *zap.Logger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(logger.GinMiddleware(log), logger.Recovery(log))

	if len(deps.CORSOrigins) > 0 {
		corsMW, err := corsMiddleware(deps.CORSOrigins)
		if err != nil {
			return nil, err
		}
		router.Use(corsMW)
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Readiness))

	h := &handlers{deps: deps, log: log}

	router.POST("/session", h.createSession)

	me := router.Group("/me", sessionMiddleware(deps.SessionSvc))
	me.GET("/cart", h.getCart)
	me.POST("/cart/items", h.addCartItem)
	me.PATCH("/cart/items", h.updateCartItem)
	me.DELETE("/cart/items", h.removeCartItem)
	me.DELETE("/cart", h.clearCart)
	me.POST("/checkout", h.checkout)
	me.GET("/orders", h.listOrders)
	me.GET("/orders/:orderId", h.getOrder)
	me.POST("/logout", h.logout)
	if deps.CustomerSvc != nil {
		me.POST("/signup", h.signup)
		me.POST("/login", h.login)
	}

	if deps.AdminSvc != nil {
		router.POST("/admin/login", h.adminLogin)
		admin := router.Group("/admin", adminMiddleware(deps.AdminSvc))
		if deps.ReportSvc != nil {
			admin.GET("/report", h.adminReport)
		}
		admin.PATCH("/orders/:orderId/status", h.adminUpdateStatus)
	}

	return router, nil
}

func corsMiddleware(origins []string) (gin.HandlerFunc, error) {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", sessionHeader, idempotencyHeader},
		ExposeHeaders: []string{sessionHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cors config: %w", err)
	}
	return cors.New(cfg), nil
}

type handlers struct {
	deps Deps
	log  *zap.Logger
}
