package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"fuel_tracker/internal/app"
	"fuel_tracker/internal/config"
	"fuel_tracker/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	// Initialize structured logging to file
	accessLog := logger.Setup(cfg.Log)

	application, err := app.New(ctx, cfg, accessLog)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialise application")
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logrus.WithError(err).Error("Server stopped with error")
		return
	}
	logrus.Info("Server stopped")
}
