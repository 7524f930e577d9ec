package app

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bookon-app/bookon/internal/api/handlers"
	"github.com/bookon-app/bookon/internal/config"
	"github.com/bookon-app/bookon/internal/dbmanager"
	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/notify"
	"github.com/bookon-app/bookon/internal/repo"
	"github.com/bookon-app/bookon/internal/router"
	"github.com/bookon-app/bookon/internal/service"
	"github.com/bookon-app/bookon/internal/service/watcher"
	"github.com/bookon-app/bookon/internal/utils/logger"
)

func initService(ctx context.Context, log *slog.Logger) (*chi.Mux, string) {
	cfg := config.NewBuilder(log).
		FromEnv().
		FromFlags().
		GetConfig()

	log = logger.New(logger.ParseLevel(cfg.LogLevel))
	slog.SetDefault(log)

	const connectTO = 2 * time.Second
	connectCtx, cancel := context.WithTimeout(ctx, connectTO)
	defer cancel()
	dbManager := dbmanager.New(cfg.DatabaseURI, log).
		Connect(connectCtx).
		ApplyMigrations(connectCtx).
		Ping(connectCtx)
	if err := dbManager.Error(); err != nil {
		log.LogAttrs(ctx,
			slog.LevelError,
			"failed to start service: db connection error",
			slog.Any(model.KeyLoggerError, err),
		)
		return nil, ""
	}

	db, err := dbManager.GetPool(ctx)
	if err != nil {
		log.LogAttrs(ctx,
			slog.LevelError,
			"failed to start service: failed to get DB pool",
			slog.Any(model.KeyLoggerError, err),
		)
		return nil, ""
	}

	parentRepo := repo.NewParentRepository(db, log)
	bookingRepo := repo.NewBookingRepository(db, log)
	ledgerRepo := repo.NewLedgerRepository(db, log)

	runCtx := logger.WithContext(ctx, log)

	events := make(chan notify.Event, model.DefaultChannelCapacity)
	dispatcher := notify.NewDispatcher(
		notify.NewHTTPClient(cfg.NotifyAddr),
		events,
		uint64(runtime.NumCPU()),
	)
	dispatcher.Run(runCtx)

	creditWatcher := watcher.New(ledgerRepo, model.ExpiryTickTimeout)
	creditWatcher.Run(runCtx)

	bookingSvc := service.NewBookingService(bookingRepo, log)
	cancellationSvc := service.NewCancellationService(bookingRepo, events, log)

	rr := router.New(cfg, log)
	rr.SetRouter(&struct {
		*handlers.AuthHandler
		*handlers.BookingHandler
		*handlers.WalletHandler
		*handlers.HealthHandler
	}{
		AuthHandler:    handlers.NewAuthHandler(parentRepo, log, cfg.SecretKey),
		BookingHandler: handlers.NewBookingHandler(bookingSvc, cancellationSvc, log),
		WalletHandler:  handlers.NewWalletHandler(ledgerRepo, log),
		HealthHandler:  handlers.NewHealthHandler(dbManager),
	})

	return rr.GetRouter(), cfg.RunAddr
}

func RunServer() {
	log := slog.Default()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux, addr := initService(ctx, log)
	if mux == nil {
		log.LogAttrs(ctx,
			slog.LevelError,
			"failed to init service",
		)
		return
	}

	err := http.ListenAndServe(addr, mux)
	if err != nil {
		log.LogAttrs(ctx,
			slog.LevelError,
			"listen and serve error",
			slog.Any(model.KeyLoggerError, err),
		)
	}
}
