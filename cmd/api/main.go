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

	"github.com/storefronthq/storefront-backend/api/routes"
	"github.com/storefronthq/storefront-backend/internal/accounts"
	"github.com/storefronthq/storefront-backend/internal/admin"
	"github.com/storefronthq/storefront-backend/internal/catalog"
	"github.com/storefronthq/storefront-backend/internal/orders"
	"github.com/storefronthq/storefront-backend/internal/uploads"
	"github.com/storefronthq/storefront-backend/pkg/config"
	"github.com/storefronthq/storefront-backend/pkg/db"
	"github.com/storefronthq/storefront-backend/pkg/logger"
	"github.com/storefronthq/storefront-backend/pkg/metrics"
	"github.com/storefronthq/storefront-backend/pkg/migrate"
	pkgredis "github.com/storefronthq/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := pkgredis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	accountsRepo := accounts.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	accountsSvc, err := accounts.NewService(accountsRepo, cfg.JWT, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}
	catalogSvc, err := catalog.NewService(catalogRepo, cfg.Catalog)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	adminSvc, err := admin.NewService(catalogRepo, ordersRepo, cfg.Dashboard)
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}
	uploadsSvc, err := uploads.NewService(cfg.Uploads)
	if err != nil {
		logg.Error(context.Background(), "failed to create uploads service", err)
		os.Exit(1)
	}

	router := routes.New(routes.Dependencies{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Metrics:  httpMetrics,
		Registry: registry,
		Accounts: accountsSvc,
		Catalog:  catalogSvc,
		Orders:   ordersSvc,
		Admin:    adminSvc,
		Uploads:  uploadsSvc,
	})

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
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	if err := closeResources(dbClient, redisClient); err != nil {
		logg.Error(ctx, "error closing resources", err)
		os.Exit(1)
	}
}

func closeResources(dbClient *db.Client, redisClient *pkgredis.Client) error {
	var err error
	if dbClient != nil {
		err = multierr.Append(err, dbClient.Close())
	}
	if redisClient != nil {
		err = multierr.Append(err, redisClient.Close())
	}
	return err
}
