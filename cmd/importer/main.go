package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/importer"
	"storefront/internal/kvstore"
	"storefront/internal/logger"
	"storefront/internal/remote"
	ordersvc "storefront/internal/service/order"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report what would be imported without writing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}).Named("importer")
	defer func() { _ = log.Sync() }()

	// The in-memory store dies with its process, so only redis has a ledger to read.
	if cfg.StoreBackend != "redis" {
		log.Fatal("STORE_BACKEND must be redis to import the local ledger")
	}
	client := remote.New(remote.Config{
		BaseURL: cfg.Remote.BaseURL,
		APIKey:  cfg.Remote.APIKey,
		Timeout: cfg.Remote.Timeout,
	}, log)
	if !client.Enabled() {
		log.Fatal("REMOTE_ORDERS_URL must be set")
	}

	ctx := context.Background()
	store, err := kvstore.NewRedis(ctx, kvstore.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("connect redis", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	start := time.Now()
	rep, err := importer.New(ordersvc.NewLedger(store, log), client, *dryRun, log).Run(ctx)
	if err != nil {
		log.Fatal("import failed", zap.Error(err), zap.Int("scanned", rep.Scanned))
	}

	out, _ := json.MarshalIndent(rep, "", "  ")
	fmt.Println(string(out))
	log.Info("done", zap.Duration("took", time.Since(start).Truncate(time.Millisecond)))
	if rep.Failed > 0 {
		os.Exit(1)
	}
}
