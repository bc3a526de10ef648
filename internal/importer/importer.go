// Package importer copies orders that only reached the local ledger into the
// remote order service, so backups written during an outage become visible
// to every reader.
package importer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

type OrderSource interface {
	List(ctx context.Context) ([]domain.Order, error)
}

type OrderSink interface {
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	CreateOrder(ctx context.Context, o domain.Order) (string, error)
}

// Report summarizes one import run.
type Report struct {
	Scanned       int      `json:"scanned"`
	AlreadyRemote int      `json:"alreadyRemote"`
	Imported      int      `json:"imported"`
	Failed        int      `json:"failed"`
	FailedIDs     []string `json:"failedIds,omitempty"`
}

type Importer struct {
	src    OrderSource
	dst    OrderSink
	dryRun bool
	log    *zap.Logger
}

// New returns an Importer. With dryRun set, orders are checked but not written.
func New(src OrderSource, dst OrderSink, dryRun bool, log *zap.Logger) *Importer {
	return &Importer{src: src, dst: dst, dryRun: dryRun, log: logger.OrNop(log).Named("importer")}
}

// Run walks the local ledger once. A lookup failure other than not-found
// stops the run, since the remote service is then unlikely to accept writes;
// a rejected create is counted and skipped.
func (i *Importer) Run(ctx context.Context) (Report, error) {
	var rep Report
	orders, err := i.src.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("read local ledger: %w", err)
	}

	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Scanned++

		_, err := i.dst.GetOrder(ctx, o.ID)
		switch {
		case err == nil:
			rep.AlreadyRemote++
			continue
		case !errors.Is(err, domain.ErrNotFound):
			return rep, fmt.Errorf("look up order %s: %w", o.ID, err)
		}

		if i.dryRun {
			i.log.Info("would import order", zap.String("order_id", o.ID))
			rep.Imported++
			continue
		}

		o.Source = ""
		remoteID, err := i.dst.CreateOrder(ctx, o)
		if err != nil {
			i.log.Warn("order import failed", zap.String("order_id", o.ID), zap.Error(err))
			rep.Failed++
			rep.FailedIDs = append(rep.FailedIDs, o.ID)
			continue
		}
		if remoteID != o.ID {
			i.log.Info("remote assigned a new id", zap.String("order_id", o.ID), zap.String("remote_id", remoteID))
		}
		rep.Imported++
	}

	i.log.Info("import finished",
		zap.Int("scanned", rep.Scanned),
		zap.Int("already_remote", rep.AlreadyRemote),
		zap.Int("imported", rep.Imported),
		zap.Int("failed", rep.Failed),
		zap.Bool("dry_run", i.dryRun))
	return rep, nil
}
