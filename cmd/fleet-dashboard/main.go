package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/config"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/dashboard"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/logging"
)

const streamInterval = 5 * time.Second

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

	gen := dashboard.NewGenerator(dashboard.DefaultFleet, time.Now().UnixNano())
	hub := dashboard.NewHub(logger)
	service := dashboard.NewService(gen, hub, streamInterval, logger)

	go service.StreamLoop(ctx)

	server := dashboard.NewServer(cfg.Dashboard.ListenAddr, service.Router(cfg.Source.AuthSecret), logger)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("dashboard stopped with error", zap.Error(err))
	}
}
