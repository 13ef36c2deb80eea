// Package monitor subscribes to the dashboard telemetry stream and keeps a
// live severity classification per asset.
package monitor

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/cache"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/intelligence"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

const (
	dialTimeout    = 10 * time.Second
	reconnectDelay = 5 * time.Second
	tokenLifetime  = time.Minute
)

// StateSink receives classified asset states. Failures are logged, never
// fatal to the monitor loop.
type StateSink interface {
	SetState(ctx context.Context, state cache.AssetState) error
}

// Monitor consumes the WebSocket stream and classifies every record.
type Monitor struct {
	streamURL  string
	authSecret string
	classifier *intelligence.Classifier
	sink       StateSink
	logger     *zap.Logger
}

// New returns a monitor. sink may be nil when no cache is configured.
func New(streamURL, authSecret string, classifier *intelligence.Classifier, sink StateSink, logger *zap.Logger) *Monitor {
	return &Monitor{
		streamURL:  streamURL,
		authSecret: authSecret,
		classifier: classifier,
		sink:       sink,
		logger:     logger,
	}
}

// Run consumes the stream until the context is cancelled, reconnecting
// after connection loss.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if err := m.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Warn("stream connection lost, reconnecting",
				zap.Duration("delay", reconnectDelay), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (m *Monitor) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}

	header := http.Header{}
	if m.authSecret != "" {
		token, err := m.mintToken()
		if err != nil {
			return err
		}
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := dialer.DialContext(ctx, m.streamURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	m.logger.Info("subscribed to telemetry stream", zap.String("url", m.streamURL))

	// Unblock ReadJSON on cancellation. The done channel releases the
	// watchdog when this attempt ends, so reconnects do not pile up
	// goroutines parked on ctx.Done().
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var records []models.TelemetryRecord
		if err := conn.ReadJSON(&records); err != nil {
			return err
		}
		for _, record := range records {
			m.observe(ctx, record)
		}
	}
}

func (m *Monitor) observe(ctx context.Context, record models.TelemetryRecord) {
	status, flags := m.classifier.Classify(record)
	if m.sink == nil {
		return
	}
	state := cache.AssetState{
		Record:     record,
		Severity:   status,
		Flags:      flags,
		ObservedAt: time.Now().UTC(),
	}
	if err := m.sink.SetState(ctx, state); err != nil {
		m.logger.Warn("asset state cache update failed",
			zap.Int64("asset_id", record.AssetID), zap.Error(err))
	}
}

func (m *Monitor) mintToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "fleet-monitor",
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.authSecret))
}
