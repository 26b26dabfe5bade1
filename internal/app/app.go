// Package app holds the start-up and run loop shared by the service
// binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"microshop/internal/config"
	"microshop/internal/discovery"
	"microshop/internal/server"
	"microshop/internal/worker"
)

const shutdownTimeout = 30 * time.Second

// NewLogger installs a JSON slog logger tagged with the service name as the
// process default.
func NewLogger(service string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler).With(slog.String("service", service))
	slog.SetDefault(logger)
	return logger
}

// Registry is the discovery backend of one process.
type Registry struct {
	Backend discovery.Backend
	// Announcer is where this instance heartbeats, nil when the backend is
	// not shared between processes.
	Announcer discovery.Registrar
	Close     func() error
}

func OpenRegistry(ctx context.Context, cfg config.Config) (*Registry, error) {
	switch cfg.RegistryBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		backend := discovery.NewRedisRegistry(client, cfg.InstanceTTL)
		return &Registry{Backend: backend, Announcer: backend, Close: client.Close}, nil
	default:
		return &Registry{
			Backend: discovery.NewStaticRegistry(cfg.StaticInstances),
			Close:   func() error { return nil },
		}, nil
	}
}

// Run serves handler until ctx is cancelled or the server fails. When
// registrar is non-nil the instance heartbeats into it meanwhile.
func Run(ctx context.Context, cfg config.Config, handler http.Handler, registrar discovery.Registrar, logger *slog.Logger) error {
	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Host
	srvCfg.Port = cfg.Port
	srv := server.New(srvCfg, handler, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	if registrar != nil {
		hb := worker.NewHeartbeatWorker(registrar, cfg.Service, cfg.AdvertiseAddr, cfg.HeartbeatInterval, logger)
		g.Go(func() error { return hb.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
