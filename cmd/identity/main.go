package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"microshop/internal/app"
	"microshop/internal/auth"
	"microshop/internal/config"
	"microshop/internal/database"
	"microshop/internal/handler"
	"microshop/internal/repo"
	"microshop/internal/server"
	"microshop/internal/service"
)

func main() {
	logger := app.NewLogger(config.ServiceIdentity)
	if err := run(logger); err != nil {
		logger.Error("identity service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ServiceIdentity)
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
	if err := database.Migrate(ctx, db, database.AccountsSchema); err != nil {
		return err
	}

	registry, err := app.OpenRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	accounts := service.NewAccountService(repo.NewTransactor(db), repo.NewAccountRepo(db), codec, logger)
	if err := accounts.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}

	engine := server.NewEngine(server.EngineConfig{
		CORSOrigins: cfg.CORSOrigins,
		Verifier:    codec,
		Policy:      handler.IdentityPolicy(),
	}, logger)
	handler.RegisterIdentityRoutes(engine, accounts, logger)

	return app.Run(ctx, cfg, engine, registry.Announcer, logger)
}
