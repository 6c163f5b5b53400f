package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/sweetshop-backend/internal/admins"
	"github.com/angelmondragon/sweetshop-backend/internal/catalog"
	"github.com/angelmondragon/sweetshop-backend/internal/offers"
	"github.com/angelmondragon/sweetshop-backend/internal/seed"
	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/db"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	"github.com/angelmondragon/sweetshop-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	applySchema := flag.Bool("migrate", true, "bring the schema up to date before seeding")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	if *applySchema {
		requireResource(ctx, logg, "schema", migrate.Apply(ctx, dbClient, *dir, logg))
	}

	sweetRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(sweetRepo, dbClient)
	requireResource(ctx, logg, "catalog service", err)

	offersService, err := offers.NewService(offers.NewRepository(dbClient.DB()), dbClient, catalogService)
	requireResource(ctx, logg, "offers service", err)

	seeder, err := seed.New(seed.Params{
		Admins:   admins.NewRepository(dbClient.DB()),
		Counter:  sweetRepo,
		Catalog:  catalogService,
		Offers:   offersService,
		Config:   cfg.Seed,
		Password: cfg.Password,
		Logger:   logg,
	})
	requireResource(ctx, logg, "seeder", err)

	result, err := seeder.Run(ctx)
	requireResource(ctx, logg, "seed run", err)

	fmt.Printf("admin created=%t updated=%t sweets=%d offers=%d\n",
		result.AdminCreated, result.AdminUpdated, result.SweetsCreated, result.OffersCreated)
	if result.GeneratedPassword != "" {
		fmt.Printf("generated admin password for %q: %s\n", cfg.Seed.AdminUsername, result.GeneratedPassword)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
