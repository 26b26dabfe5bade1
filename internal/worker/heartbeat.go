package worker

import (
	"context"
	"log/slog"
	"time"

	"microshop/internal/discovery"
)

// HeartbeatWorker keeps one service instance registered while it runs.
type HeartbeatWorker struct {
	registrar discovery.Registrar
	service   string
	addr      string
	interval  time.Duration
	logger    *slog.Logger
}

func NewHeartbeatWorker(
	registrar discovery.Registrar,
	service, addr string,
	interval time.Duration,
	logger *slog.Logger,
) *HeartbeatWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeartbeatWorker{
		registrar: registrar,
		service:   service,
		addr:      addr,
		interval:  interval,
		logger:    logger.With(slog.String("service", service), slog.String("addr", addr)),
	}
}

// Run registers immediately, then on every tick, until ctx is done. The
// instance is deregistered on the way out.
func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("heartbeat worker started", slog.Duration("interval", w.interval))
	w.beat(ctx)

	for {
		select {
		case <-ctx.Done():
			w.deregister(ctx)
			return nil
		case <-ticker.C:
			w.beat(ctx)
		}
	}
}

// beat failures are retried on the next tick; the instance only drops out
// of the registry once its entry goes stale.
func (w *HeartbeatWorker) beat(ctx context.Context) {
	if err := w.registrar.Register(ctx, w.service, w.addr); err != nil && ctx.Err() == nil {
		w.logger.Warn("heartbeat failed", slog.Any("error", err))
	}
}

func (w *HeartbeatWorker) deregister(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := w.registrar.Deregister(ctx, w.service, w.addr); err != nil {
		w.logger.Warn("deregister failed", slog.Any("error", err))
		return
	}
	w.logger.Info("heartbeat worker stopped")
}
