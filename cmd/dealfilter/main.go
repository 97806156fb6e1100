package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/firsthalfhero/OzBargain/internal/app"
	"github.com/firsthalfhero/OzBargain/internal/config"
	"github.com/firsthalfhero/OzBargain/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
