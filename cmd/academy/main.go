// Package main содержит точку входа для HTTP API академии.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/bitforex-academy/internal/app/academy"
	"github.com/magabrotheeeer/bitforex-academy/internal/config"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env)

	logger.Info("starting academy", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := academy.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize academy app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("academy stopped with error", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("academy stopped")
}
