// Package cache holds the Redis-backed latest-asset-state cache shared by
// the reconciliation engine and the live monitor.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

// AssetState is the cached view of an asset: its latest record plus the
// live severity classification when the monitor produced one.
type AssetState struct {
	Record     models.TelemetryRecord `json:"record"`
	Severity   models.Severity        `json:"severity,omitempty"`
	Flags      []models.Anomaly       `json:"flags,omitempty"`
	ObservedAt time.Time              `json:"observed_at"`
}

// LatestStore caches the most recent state per asset with a TTL.
type LatestStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLatestStore returns a redis-backed store.
func NewLatestStore(client *redis.Client, ttl time.Duration) *LatestStore {
	return &LatestStore{client: client, ttl: ttl}
}

func (s *LatestStore) key(assetID int64) string {
	return fmt.Sprintf("assets:latest:%d", assetID)
}

// SetLatest caches the latest accepted record for the asset.
func (s *LatestStore) SetLatest(ctx context.Context, record models.TelemetryRecord) error {
	return s.SetState(ctx, AssetState{Record: record, ObservedAt: time.Now().UTC()})
}

// SetState caches a classified asset state.
func (s *LatestStore) SetState(ctx context.Context, state AssetState) error {
	if state.ObservedAt.IsZero() {
		state.ObservedAt = time.Now().UTC()
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(state.Record.AssetID), data, s.ttl).Err()
}

// GetState returns the cached state for the asset.
func (s *LatestStore) GetState(ctx context.Context, assetID int64) (*AssetState, error) {
	result, err := s.client.Get(ctx, s.key(assetID)).Result()
	if err != nil {
		return nil, err
	}
	var state AssetState
	if err := json.Unmarshal([]byte(result), &state); err != nil {
		return nil, err
	}
	return &state, nil
}
