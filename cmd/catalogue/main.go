package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"microshop/internal/app"
	"microshop/internal/auth"
	"microshop/internal/config"
	"microshop/internal/database"
	"microshop/internal/domain"
	"microshop/internal/handler"
	"microshop/internal/repo"
	"microshop/internal/server"
	"microshop/internal/service"
)

var sampleProducts = []domain.Product{
	{Name: "Nike Trainers", Category: "trainers", Price: decimal.RequireFromString("1.00"), Color: "red"},
	{Name: "Adidas Trainers", Category: "trainers", Price: decimal.RequireFromString("2.00"), Color: "blue"},
	{Name: "NB Trainers", Category: "trainers", Price: decimal.RequireFromString("3.00"), Color: "green"},
	{Name: "Reebook Trainers", Category: "trainers", Price: decimal.RequireFromString("4.00"), Color: "yellow"},
	{Name: "Puma shirt", Category: "shirts", Price: decimal.RequireFromString("5.00"), Color: "orange"},
}

func main() {
	logger := app.NewLogger(config.ServiceCatalogue)
	if err := run(logger); err != nil {
		logger.Error("catalogue service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ServiceCatalogue)
	if err != nil {
		return err
	}
	codec, err := auth.NewTokenCodec(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	db, err := database.NewPostgres(ctx, cfg.DB, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, database.ProductsSchema); err != nil {
		return err
	}

	registry, err := app.OpenRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	catalogue := service.NewCatalogueService(repo.NewProductRepo(db))
	if cfg.SeedData {
		n, err := catalogue.SeedCatalogue(ctx, sampleProducts...)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("seeded catalogue", slog.Int("products", n))
		}
	}

	engine := server.NewEngine(server.EngineConfig{
		CORSOrigins: cfg.CORSOrigins,
		Verifier:    codec,
		Policy:      handler.CataloguePolicy(),
	}, logger)
	handler.RegisterCatalogueRoutes(engine, catalogue, logger)

	return app.Run(ctx, cfg, engine, registry.Announcer, logger)
}
