// Package source abstracts the telemetry producer the pipeline extracts
// from each cycle.
package source

import (
	"context"
	"errors"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

// ErrNoTelemetry is returned when the source produced no records.
var ErrNoTelemetry = errors.New("source: no telemetry available")

// Source produces raw telemetry records. A session is acquired with Connect
// and must be released with Close after every extraction attempt,
// successful or not.
type Source interface {
	Connect(ctx context.Context) error
	ExtractLatest(ctx context.Context) (models.TelemetryRecord, error)
	ExtractAll(ctx context.Context) ([]models.TelemetryRecord, error)
	Close() error
}
