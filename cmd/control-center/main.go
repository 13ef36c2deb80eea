package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/app"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/config"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.Log.File)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init application", zap.Error(err))
	}
	defer application.Close()

	state, err := application.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		// Extraction exhaustion halts the cycle; the scheduler decides
		// whether to trigger another one.
		logger.Error("pipeline cycle failed", zap.String("state", string(state)), zap.Error(err))
		return
	}
	logger.Info("pipeline cycle finished", zap.String("state", string(state)))
}
