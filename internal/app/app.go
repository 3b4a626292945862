// Package app wires Momo's bootstrap: load config, connect a
// Schedule, register handlers, and serve the HTTP control surface
// until the process is asked to stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"momo/internal/config"
	"momo/internal/httpapi"
	"momo/internal/model"
	"momo/internal/schedule"
)

// Run boots the scheduler service: it connects a Schedule per cfg,
// registers the built-in handlers, starts serving HTTP, and blocks
// until ctx is cancelled, at which point it drains and disconnects.
func Run(ctx context.Context, log *zap.Logger, cfg config.ServiceConfig, dsn string) error {
	registry := httpapi.NewHandlerRegistry()
	registerBuiltinHandlers(registry, log)

	conn, err := schedule.Connect(ctx, schedule.ConnectOptions{
		Name:         cfg.ScheduleName,
		PostgresDSN:  dsn,
		NATSURL:      cfg.NATSConfig.URL,
		PingInterval: cfg.PingInterval,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("failed connecting schedule: %w", err)
	}

	server := httpapi.NewServer(log, conn.Schedule, registry)
	server.Addr = cfg.Address

	serveErr := make(chan error, 1)
	go func() {
		log.Info("serving http", zap.String("address", cfg.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			log.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed shutting down http server", zap.Error(err))
	}

	if err := conn.Disconnect(shutdownCtx); err != nil {
		log.Error("failed disconnecting schedule", zap.Error(err))
		return err
	}
	return nil
}

// registerBuiltinHandlers registers the handlers available out of the
// box. Jobs referencing any other handlerName must be registered by
// an embedding application before the server starts handling requests
// for them.
func registerBuiltinHandlers(registry *httpapi.HandlerRegistry, log *zap.Logger) {
	registry.Register("noop", func(context.Context, model.Job) error {
		return nil
	})
	registry.Register("log", func(_ context.Context, job model.Job) error {
		log.Info("running log handler", zap.String("job", job.Name), zap.Any("payload", job.Payload))
		return nil
	})
}
