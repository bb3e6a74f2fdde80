package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-pulse/internal/app"
	"github.com/samvad-hq/samvad-pulse/internal/config"
	"github.com/samvad-hq/samvad-pulse/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pulsed start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("pulsed starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor, err := app.NewMonitor(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize monitor", "error", err)
		return err
	}

	if err := monitor.Run(ctx); err != nil {
		return fmt.Errorf("monitor run: %w", err)
	}

	return nil
}
