// Package watcher sweeps the wallet ledger on a timer, flipping
// credits past their expiry date from active to expired.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/utils/logger"
)

type creditLedger interface {
	ExpireCredits(ctx context.Context, now time.Time) (int64, error)
}

type Watcher struct {
	ledger creditLedger
	tick   time.Duration
}

func New(ledger creditLedger, tick time.Duration) *Watcher {
	if tick <= 0 {
		tick = model.ExpiryTickTimeout
	}
	return &Watcher{
		ledger: ledger,
		tick:   tick,
	}
}

func (w *Watcher) Run(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	log := logger.FromContext(ctx).With("service", "credit-watcher")
	log.LogAttrs(ctx, slog.LevelInfo, "running")

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.LogAttrs(ctx, slog.LevelInfo, "stop signal received, exiting...")
			return

		case <-ticker.C:
			expired, err := w.ledger.ExpireCredits(ctx, time.Now().UTC())
			if err != nil {
				log.LogAttrs(ctx,
					slog.LevelError,
					"failed to expire wallet credits",
					slog.Any(model.KeyLoggerError, err),
				)
				continue
			}
			if expired > 0 {
				log.LogAttrs(ctx,
					slog.LevelInfo,
					"wallet credits expired",
					slog.Int64("count", expired),
				)
			}
		}
	}
}
