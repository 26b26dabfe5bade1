package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"microshop/internal/app"
	"microshop/internal/auth"
	"microshop/internal/checkout"
	"microshop/internal/config"
	"microshop/internal/database"
	"microshop/internal/discovery"
	"microshop/internal/handler"
	"microshop/internal/remote"
	"microshop/internal/repo"
	"microshop/internal/server"
	"microshop/internal/service"
)

func main() {
	logger := app.NewLogger(config.ServiceCart)
	if err := run(logger); err != nil {
		logger.Error("cart service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ServiceCart)
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
	if err := database.Migrate(ctx, db, database.CartLinesSchema); err != nil {
		return err
	}

	registry, err := app.OpenRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	client := remote.NewClient(discovery.NewLocator(registry.Backend), &http.Client{})
	cart := service.NewCartService(repo.NewCartRepo(db), client)
	orchestrator := checkout.NewOrchestrator(cart, client, client, logger)

	engine := server.NewEngine(server.EngineConfig{
		CORSOrigins: cfg.CORSOrigins,
		Verifier:    codec,
		Policy:      handler.CartPolicy(),
	}, logger)
	handler.RegisterCartRoutes(engine, cart, orchestrator, logger)

	return app.Run(ctx, cfg, engine, registry.Announcer, logger)
}
