package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/sweetshop-backend/api/routes"
	"github.com/angelmondragon/sweetshop-backend/internal/admins"
	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	"github.com/angelmondragon/sweetshop-backend/internal/catalog"
	"github.com/angelmondragon/sweetshop-backend/internal/checkout"
	"github.com/angelmondragon/sweetshop-backend/internal/offers"
	"github.com/angelmondragon/sweetshop-backend/internal/seed"
	shopsession "github.com/angelmondragon/sweetshop-backend/internal/session"
	"github.com/angelmondragon/sweetshop-backend/pkg/auth/session"
	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/db"
	"github.com/angelmondragon/sweetshop-backend/pkg/env"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	"github.com/angelmondragon/sweetshop-backend/pkg/metrics"
	"github.com/angelmondragon/sweetshop-backend/pkg/migrate"
	"github.com/angelmondragon/sweetshop-backend/pkg/pubsub"
	"github.com/angelmondragon/sweetshop-backend/pkg/redis"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, closers[i].Close())
		}
		if errs != nil {
			logg.Error(context.Background(), "error closing resources", errs)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	closers = append(closers, dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	closers = append(closers, redisClient)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	activeCache, err := offers.NewActiveCache(redisClient, redisClient.ActiveOffersKey(), cfg.Offers.CacheTTL)
	if err != nil {
		logg.Error(ctx, "failed to create offers cache", err)
		os.Exit(1)
	}

	sweetRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(sweetRepo, dbClient, catalog.WithOfferCache(activeCache))
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}
	productSource, err := catalog.NewProductSource(sweetRepo)
	if err != nil {
		logg.Error(ctx, "failed to create product source", err)
		os.Exit(1)
	}

	offersService, err := offers.NewService(
		offers.NewRepository(dbClient.DB()),
		dbClient,
		catalogService,
		offers.WithCacheInvalidator(activeCache),
	)
	if err != nil {
		logg.Error(ctx, "failed to create offers service", err)
		os.Exit(1)
	}
	activeOffers, err := offers.NewCachedSource(offersService, logg,
		offers.WithCache(activeCache),
		offers.WithRetry(cfg.Offers.FetchAttempts, cfg.Offers.FetchBackoff),
	)
	if err != nil {
		logg.Error(ctx, "failed to create active offers source", err)
		os.Exit(1)
	}

	sessionStore, err := shopsession.NewRedisStore(redisClient, cfg.Cart.SessionTTL)
	if err != nil {
		logg.Error(ctx, "failed to create session store", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(sessionStore, productSource)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	submitter, pubsubClient, err := buildSubmitter(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to create checkout submitter", err)
		os.Exit(1)
	}
	if pubsubClient != nil {
		closers = append(closers, pubsubClient)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Sessions:  sessionStore,
		Offers:    activeOffers,
		Submitter: submitter,
		Logger:    logg,
		Pricing:   checkout.Pricing{DeliveryFee: cfg.Checkout.DeliveryFee},
		Metrics:   metrics.NewCheckoutMetrics(registry),
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	adminService, err := admins.NewService(admins.ServiceParams{
		Repo:           admins.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create admin service", err)
		os.Exit(1)
	}

	if cfg.FeatureFlags.SeedOnBoot {
		if err := runSeed(ctx, cfg, logg, dbClient, sweetRepo, catalogService, offersService); err != nil {
			logg.Error(ctx, "failed to seed catalog", err)
			os.Exit(1)
		}
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"submitter": submitter.Name(),
	})

	deps := routes.Dependencies{
		DB:           dbClient,
		Redis:        redisClient,
		Sessions:     sessionManager,
		Metrics:      registry,
		Catalog:      catalogService,
		Offers:       offersService,
		ActiveOffers: activeOffers,
		Cart:         cartService,
		Checkout:     checkoutService,
		Admins:       adminService,
	}
	if pubsubClient != nil {
		deps.PubSub = pubsubClient
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), env.GetDuration("SWEETSHOP_SHUTDOWN_TIMEOUT", 15*time.Second))
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "graceful shutdown failed", err)
		}
	}
}

// buildSubmitter returns the pubsub client alongside the submitter so the
// caller can close it on shutdown.
func buildSubmitter(ctx context.Context, cfg *config.Config, logg *logger.Logger) (checkout.Submitter, *pubsub.Client, error) {
	if !cfg.Checkout.UsesPubSub() {
		submitter, err := checkout.NewLogSubmitter(logg)
		return submitter, nil, err
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	submitter, err := checkout.NewPubSubSubmitter(client.CheckoutPublisher(), logg)
	if err != nil {
		return nil, nil, multierr.Append(err, client.Close())
	}
	return submitter, client, nil
}

func runSeed(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sweetRepo *catalog.Repository, catalogService catalog.Service, offersService offers.Service) error {
	seeder, err := seed.New(seed.Params{
		Admins:   admins.NewRepository(dbClient.DB()),
		Counter:  sweetRepo,
		Catalog:  catalogService,
		Offers:   offersService,
		Config:   cfg.Seed,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	result, err := seeder.Run(ctx)
	if err != nil {
		return err
	}
	if result.GeneratedPassword != "" {
		logg.Warn(logg.WithField(ctx, "username", cfg.Seed.AdminUsername), "seed admin created with a generated password; set SWEETSHOP_SEED_ADMIN_PASSWORD and rerun the seed to rotate it")
	}
	return nil
}
