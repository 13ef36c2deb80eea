// Package dashboard simulates the edge-device fleet dashboard: it generates
// randomized telemetry for a fixed fleet and serves it over HTTP and a
// WebSocket stream.
package dashboard

import (
	"math/rand"
	"sync"
	"time"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

// Generator produces telemetry snapshots for a fixed fleet. Mileage and
// usage hours only ever grow, battery drifts downward, and every snapshot
// has a small chance of a FAIL code or a dropped battery reading, so the
// reconciliation rules have something to chew on.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	assets []assetState
	now    func() time.Time
}

type assetState struct {
	id      int64
	mileage float64
	battery int
	usage   float64
}

// DefaultFleet matches the three-asset fleet of the original edge device.
var DefaultFleet = []int64{1001, 1002, 1003}

// NewGenerator seeds a generator for the given asset ids. An empty fleet
// falls back to DefaultFleet; the generator always has at least one asset.
func NewGenerator(assetIDs []int64, seed int64) *Generator {
	if len(assetIDs) == 0 {
		assetIDs = DefaultFleet
	}
	rng := rand.New(rand.NewSource(seed))
	assets := make([]assetState, len(assetIDs))
	for i, id := range assetIDs {
		assets[i] = assetState{
			id:      id,
			mileage: 100 + rng.Float64()*4900,
			battery: 60 + rng.Intn(41),
			usage:   rng.Float64() * 500,
		}
	}
	return &Generator{rng: rng, assets: assets, now: time.Now}
}

// Next advances every asset one step and returns the fleet snapshot.
func (g *Generator) Next() []models.TelemetryRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UTC().Truncate(time.Second)
	records := make([]models.TelemetryRecord, len(g.assets))
	for i := range g.assets {
		a := &g.assets[i]
		a.mileage += g.rng.Float64() * 50
		a.usage += g.rng.Float64() * 5
		if a.battery > 5 && g.rng.Intn(4) == 0 {
			a.battery--
		}

		errorCode := models.ErrorCodeOK
		if g.rng.Intn(10) == 0 {
			errorCode = models.ErrorCodeFail
		}

		var battery *int
		if g.rng.Intn(20) != 0 { // 1-in-20 sensor dropout
			b := a.battery
			battery = &b
		}

		records[i] = models.TelemetryRecord{
			AssetID:       a.id,
			Timestamp:     ts,
			Mileage:       a.mileage,
			BatteryHealth: battery,
			UsageHours:    a.usage,
			ErrorCode:     errorCode,
		}
	}
	return records
}
