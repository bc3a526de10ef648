package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/kvstore"
	"storefront/internal/logger"
	"storefront/internal/remote"
	cartrepo "storefront/internal/repository/cart"
	customerrepo "storefront/internal/repository/customer"
	adminsvc "storefront/internal/service/admin"
	cartsvc "storefront/internal/service/cart"
	customersvc "storefront/internal/service/customer"
	ordersvc "storefront/internal/service/order"
	reportsvc "storefront/internal/service/report"
	sessionsvc "storefront/internal/service/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}).Named("api")
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("open local store", zap.Error(err))
	}
	defer closeStore()

	// Accounts live in Postgres; without it the storefront runs guest-only.
	var dbpool *pgxpool.Pool
	if cfg.DBConnString != "" {
		dbpool, err = db.Connect(ctx, cfg.DBConnString, db.Options{MaxConns: cfg.DBMaxConns}, log)
		if err != nil {
			log.Warn("postgres unavailable, signup and login disabled", zap.Error(err))
		} else {
			defer dbpool.Close()
		}
	}

	sessions, err := sessionsvc.New(store, cfg.SessionSecret, cfg.SessionTTL, log)
	if err != nil {
		log.Fatal("init sessions", zap.Error(err))
	}
	carts := cartsvc.New(cartrepo.NewKV(store), log)
	sessions.SetCartMerger(carts)

	remoteClient := remote.New(remote.Config{
		BaseURL: cfg.Remote.BaseURL,
		APIKey:  cfg.Remote.APIKey,
		Timeout: cfg.Remote.Timeout,
	}, log)
	if !remoteClient.Enabled() {
		log.Warn("REMOTE_ORDERS_URL not set, orders are stored locally only")
	}
	ledger := ordersvc.NewLedger(store, log)

	deps := httpserver.Deps{
		SessionSvc: sessions,
		CartSvc:    carts,
		CheckoutSvc: ordersvc.NewSubmitter(remoteClient, ledger, store, ordersvc.SubmitterConfig{
			TaxRate:        cfg.TaxRate,
			IdempotencyTTL: cfg.IdempotencyTTL,
			PendingTTL:     cfg.Remote.Timeout + 10*time.Second,
		}, log),
		OrderQuery:  ordersvc.NewQuery(remoteClient, ledger, log),
		ReportSvc:   reportsvc.New(ledger, log),
		Readiness:   map[string]httpserver.Pinger{"store": store},
		CORSOrigins: cfg.CORSOrigins,
	}
	if dbpool != nil {
		deps.CustomerSvc = customersvc.New(customerrepo.NewPostgres(dbpool, log), log)
		deps.Readiness["db"] = dbpool
	}
	admin := adminsvc.New(adminsvc.Config{
		Email:        cfg.AdminEmail,
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       cfg.SessionSecret,
	}, log)
	if admin.Enabled() {
		deps.AdminSvc = admin
	}

	srv, err := httpserver.New(cfg.HTTPAddr, log, deps)
	if err != nil {
		log.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("server stopped")
	}
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (kvstore.Store, func(), error) {
	if cfg.StoreBackend != "redis" {
		log.Info("using in-memory local store")
		return kvstore.NewMemory(), func() {}, nil
	}
	rdb, err := kvstore.NewRedis(ctx, kvstore.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info("using redis local store", zap.String("addr", cfg.Redis.Addr))
	return rdb, func() { _ = rdb.Close() }, nil
}
