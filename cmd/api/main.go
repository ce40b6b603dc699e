package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/minhtran-dev/cakemarket-backend/api/routes"
	"github.com/minhtran-dev/cakemarket-backend/internal/checkout"
	"github.com/minhtran-dev/cakemarket-backend/internal/escrow"
	"github.com/minhtran-dev/cakemarket-backend/internal/gateway"
	"github.com/minhtran-dev/cakemarket-backend/internal/orders"
	"github.com/minhtran-dev/cakemarket-backend/internal/refunds"
	"github.com/minhtran-dev/cakemarket-backend/internal/settlement"
	"github.com/minhtran-dev/cakemarket-backend/internal/shipping"
	"github.com/minhtran-dev/cakemarket-backend/internal/wallet"
	"github.com/minhtran-dev/cakemarket-backend/pkg/config"
	"github.com/minhtran-dev/cakemarket-backend/pkg/db"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
	"github.com/minhtran-dev/cakemarket-backend/pkg/metrics"
	"github.com/minhtran-dev/cakemarket-backend/pkg/migrate"
	"github.com/minhtran-dev/cakemarket-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gatewayClient, err := gateway.New(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	shippingSvc, err := shipping.NewService(shipping.NewRateClient(cfg.Shipping), redisClient, cfg.Shipping, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)

	walletRepo := wallet.NewRepository(dbClient.DB())
	walletSvc, err := wallet.NewService(dbClient, walletRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	escrowSvc, err := escrow.NewService(escrow.NewRepository(dbClient.DB()), walletSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create escrow service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(dbClient, ordersRepo, escrowSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(
		dbClient,
		checkout.NewRepository(dbClient.DB()),
		ordersRepo,
		walletSvc,
		escrowSvc,
		shippingSvc,
		gatewayClient,
		settlementMetrics,
		logg,
		cfg.Shipping.ItemWeightGram,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	settlementSvc, err := settlement.NewService(dbClient, ordersRepo, gatewayClient, escrowSvc, settlementMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	refundsSvc, err := refunds.NewService(dbClient, refunds.NewRepository(dbClient.DB()), ordersRepo, escrowSvc, settlementMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Cfg:        cfg,
			Logg:       logg,
			DB:         dbClient,
			Redis:      redisClient,
			Checkout:   checkoutSvc,
			Orders:     ordersSvc,
			Wallet:     walletSvc,
			Escrow:     escrowSvc,
			Refunds:    refundsSvc,
			Settlement: settlementSvc,
			Shipping:   shippingSvc,
		}),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
