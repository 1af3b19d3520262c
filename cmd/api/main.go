package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"mailpilot/internal/app"
	"mailpilot/internal/config"
	"mailpilot/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load("", "config")
	if err != nil {
		panic(err)
	}

	log := logger.NewLoggerWithLevel(cfg.Log.Level).Named("api")
	defer log.Sync()

	if err := app.RunAPI(ctx, cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}
