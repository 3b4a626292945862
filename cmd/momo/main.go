package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"momo/internal/app"
	"momo/internal/config"
	"momo/internal/logging"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the service config file")
	pretty := flag.Bool("pretty", false, "use a colorized console logger instead of JSON")
	flag.Parse()

	log, err := logging.New(*pretty)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("scheduler service starting")

	cfg, dsn, err := config.LoadServiceConfig(log, *configPath, "MOMO_DB_PASSWORD")
	if err != nil {
		log.Error("failed loading service config", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, log, cfg, dsn); err != nil {
		log.Error("service encountered an error", zap.Error(err))
		os.Exit(1)
	}
}
