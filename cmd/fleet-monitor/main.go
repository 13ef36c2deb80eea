package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/cache"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/config"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/intelligence"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/logging"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/monitor"
)

const stateTTL = 24 * time.Hour

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

	streamURL := cfg.Monitor.StreamURL
	if streamURL == "" {
		streamURL = deriveStreamURL(cfg.Source.URL)
	}

	var sink monitor.StateSink
	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer client.Close()
		sink = cache.NewLatestStore(client, stateTTL)
	}

	classifier := intelligence.NewClassifier(logger)
	m := monitor.New(streamURL, cfg.Source.AuthSecret, classifier, sink, logger)

	if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("monitor stopped with error", zap.Error(err))
	}
}

// deriveStreamURL maps the dashboard HTTP base URL to its stream endpoint.
func deriveStreamURL(baseURL string) string {
	url := strings.TrimRight(baseURL, "/")
	url = strings.Replace(url, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)
	return url + "/ws/telemetry"
}
