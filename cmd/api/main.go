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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/mealflow-backend/api/routes"
	"github.com/angelmondragon/mealflow-backend/internal/delivery"
	"github.com/angelmondragon/mealflow-backend/internal/inventory"
	"github.com/angelmondragon/mealflow-backend/internal/orders"
	"github.com/angelmondragon/mealflow-backend/internal/users"
	gatewaywebhook "github.com/angelmondragon/mealflow-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/mealflow-backend/pkg/config"
	"github.com/angelmondragon/mealflow-backend/pkg/db"
	"github.com/angelmondragon/mealflow-backend/pkg/gateway"
	"github.com/angelmondragon/mealflow-backend/pkg/logger"
	"github.com/angelmondragon/mealflow-backend/pkg/metrics"
	"github.com/angelmondragon/mealflow-backend/pkg/migrate"
	"github.com/angelmondragon/mealflow-backend/pkg/outbox"
	"github.com/angelmondragon/mealflow-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	exitCode := 0
	// registered first so it runs after every other deferred close
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		_ = dbClient.Close()
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		_ = dbClient.Close()
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	gatewayClient, err := gateway.NewClient(gateway.ConfigFromEnv(cfg.Gateway))
	if err != nil {
		logg.Error(context.Background(), "failed to build gateway client", err)
		exitCode = 1
		return
	}

	directory, err := users.NewDirectory(users.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to build user directory", err)
		exitCode = 1
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.NewOrderMetrics(reg)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repository:        orders.NewRepository(dbClient.DB()),
		TransactionRunner: dbClient,
		Ledger:            inventory.NewLedger(),
		Scheduler:         delivery.NewScheduler(),
		Profiles:          directory,
		Actors:            directory,
		Gateway:           gatewayClient,
		Outbox:            outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Metrics:           orderMetrics,
		Logger:            logg,
		DeliveryLeadTime:  cfg.Delivery.LeadTime,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		exitCode = 1
		return
	}

	callbackGuard, err := gatewaywebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.CallbackIdempotencyTTL, gatewaywebhook.Scope)
	if err != nil {
		logg.Error(context.Background(), "failed to create callback idempotency guard", err)
		exitCode = 1
		return
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Idempotency:   redisClient,
			Orders:        ordersService,
			Gateway:       gatewayClient,
			CallbackGuard: callbackGuard,
			OrderMetrics:  orderMetrics,
			HTTPMetrics:   metrics.NewHTTPMetrics(reg),
			Gatherer:      reg,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown failed", err)
		exitCode = 1
		return
	}
	logg.Info(ctx, "api server shut down gracefully")
}
