// Package reconcile decides, per incoming telemetry record, whether the
// ledger is appended to and persists the result.
package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/ledger"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/rules"
)

// Outcome is the reconciliation decision for one record.
type Outcome struct {
	Status    models.OutcomeStatus
	Anomalies []models.Anomaly
}

// LatestCache receives the latest accepted record per asset after a durable
// save. Implementations are best-effort; failures never change an outcome.
type LatestCache interface {
	SetLatest(ctx context.Context, record models.TelemetryRecord) error
}

// Engine composes the business-rule evaluator and the ledger repository
// into a single per-record decision.
type Engine struct {
	repo   *ledger.Repository
	cache  LatestCache
	logger *zap.Logger

	// requirePrior rejects records for assets with no ledger history
	// instead of accepting them as a first observation.
	requirePrior bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLatestCache attaches a best-effort latest-state cache.
func WithLatestCache(cache LatestCache) Option {
	return func(e *Engine) { e.cache = cache }
}

// WithRequirePriorRecord makes the engine reject assets that have no ledger
// history rather than seeding them.
func WithRequirePriorRecord() Option {
	return func(e *Engine) { e.requirePrior = true }
}

// NewEngine returns a reconciliation engine.
func NewEngine(repo *ledger.Repository, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{repo: repo, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile validates the record against the asset's ledger history and
// appends it unless it is an exact replay of the latest entry. Anomalies
// are recorded, not blocking. A persistence failure is returned as an
// error, distinct from any rejection outcome: ledger durability is the
// engine's core guarantee.
func (e *Engine) Reconcile(ctx context.Context, record models.TelemetryRecord) (Outcome, error) {
	if err := record.Validate(); err != nil {
		return Outcome{}, err
	}

	table, err := e.repo.Load(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("reconcile: load ledger: %w", err)
	}

	last, ok := e.repo.FindLatestForAsset(table, record.AssetID)
	if !ok {
		if e.requirePrior {
			e.logger.Warn("no ledger history for asset, rejecting",
				zap.Int64("asset_id", record.AssetID))
			return Outcome{Status: models.OutcomeRejectedNoPrior}, nil
		}
		// First observation for this asset; no rules apply without history.
		if err := e.appendAndSave(ctx, table, record); err != nil {
			return Outcome{}, err
		}
		e.logger.Info("first observation accepted",
			zap.Int64("asset_id", record.AssetID),
			zap.Time("timestamp", record.Timestamp))
		return Outcome{Status: models.OutcomeAccepted}, nil
	}

	anomalies := rules.Evaluate(record, last)

	if rules.HasCode(anomalies, models.CodeDuplicate) {
		// The sole hard gate: an exact replay never reaches the ledger.
		e.logger.Warn("duplicate telemetry rejected",
			zap.Int64("asset_id", record.AssetID),
			zap.Time("timestamp", record.Timestamp))
		return Outcome{Status: models.OutcomeRejectedDuplicate, Anomalies: anomalies}, nil
	}

	if err := e.appendAndSave(ctx, table, record); err != nil {
		return Outcome{}, err
	}

	if len(anomalies) > 0 {
		codes := make([]string, len(anomalies))
		for i, a := range anomalies {
			codes[i] = a.Code
		}
		e.logger.Warn("telemetry accepted with anomalies",
			zap.Int64("asset_id", record.AssetID),
			zap.Strings("anomalies", codes))
		return Outcome{Status: models.OutcomeAcceptedWithAnomalies, Anomalies: anomalies}, nil
	}

	e.logger.Info("telemetry reconciled",
		zap.Int64("asset_id", record.AssetID),
		zap.Time("timestamp", record.Timestamp))
	return Outcome{Status: models.OutcomeAccepted}, nil
}

func (e *Engine) appendAndSave(ctx context.Context, table ledger.Table, record models.TelemetryRecord) error {
	next, err := e.repo.Append(table, record)
	if err != nil {
		return fmt.Errorf("reconcile: append: %w", err)
	}
	if err := e.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("reconcile: persist ledger: %w", err)
	}
	if e.cache != nil {
		if err := e.cache.SetLatest(ctx, record); err != nil {
			e.logger.Warn("latest-state cache update failed",
				zap.Int64("asset_id", record.AssetID), zap.Error(err))
		}
	}
	return nil
}
