package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/conversion"
	"github.com/meridian-erp/meridian-erp/internal/invoices"
	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/offers"
	"github.com/meridian-erp/meridian-erp/internal/orders"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/totals"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	txr := db.NewTxRunner(pool)
	integrity := shared.NewIntegrityLogger(pool, logger)
	allocator := numbering.NewAllocator(logger, integrity)
	engine := totals.NewEngine()

	offerRepo := offers.NewRepository()
	invoiceRepo := invoices.NewRepository()
	salesRepo := orders.NewRepository(orders.KindSales)
	prodRepo := orders.NewRepository(orders.KindProduction)

	offerService := offers.NewService(pool, txr, offerRepo, allocator, engine, logger)
	invoiceService := invoices.NewService(pool, txr, invoiceRepo, allocator, engine, logger)
	salesService := orders.NewService(pool, txr, salesRepo, logger)
	prodService := orders.NewService(pool, txr, prodRepo, logger)
	orchestrator := conversion.NewOrchestrator(
		pool, txr, offerRepo, invoiceRepo, salesRepo, prodRepo,
		allocator, engine, integrity, logger,
	)

	router := app.NewRouter(app.RouterParams{
		Logger:                 logger,
		Config:                 cfg,
		Pool:                   pool,
		OffersHandler:          offers.NewHandler(logger, offerService),
		InvoicesHandler:        invoices.NewHandler(logger, invoiceService),
		SalesOrderHandler:      orders.NewHandler(logger, salesService),
		ProductionOrderHandler: orders.NewHandler(logger, prodService),
		ConversionHandler:      conversion.NewHandler(logger, orchestrator),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
