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
	"microshop/internal/events"
	"microshop/internal/handler"
	"microshop/internal/repo"
	"microshop/internal/server"
	"microshop/internal/service"
)

func main() {
	logger := app.NewLogger(config.ServiceOrder)
	if err := run(logger); err != nil {
		logger.Error("order service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ServiceOrder)
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
	if err := database.Migrate(ctx, db, database.OrdersSchema, database.OrdersAccountIndex); err != nil {
		return err
	}

	registry, err := app.OpenRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		rabbit, err := events.Dial(ctx, cfg.AMQPURL, logger)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		publisher = rabbit
	} else {
		logger.Info("AMQP_URL not set, order events are not published")
	}

	orders := service.NewOrderService(repo.NewTransactor(db), repo.NewOrderRepo(db), publisher, logger)

	engine := server.NewEngine(server.EngineConfig{
		CORSOrigins: cfg.CORSOrigins,
		Verifier:    codec,
		Policy:      handler.OrderPolicy(),
	}, logger)
	handler.RegisterOrderRoutes(engine, orders, logger)

	return app.Run(ctx, cfg, engine, registry.Announcer, logger)
}
