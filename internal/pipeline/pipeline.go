// Package pipeline sequences one cycle: telemetry extraction with bounded
// retry, reconciliation, and a best-effort annotation pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/reconcile"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/source"
)

// State identifies a pipeline stage. Run returns the terminal state of the
// cycle: Done on success, Failed when extraction was exhausted, or the
// stage at which the cycle halted.
type State string

const (
	StateExtracting  State = "extracting"
	StateReconciling State = "reconciling"
	StateAnnotating  State = "annotating"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// ErrExtractionExhausted is returned after every extraction attempt failed.
var ErrExtractionExhausted = errors.New("pipeline: extraction attempts exhausted")

// Reconciler is the reconciliation engine seam.
type Reconciler interface {
	Reconcile(ctx context.Context, record models.TelemetryRecord) (reconcile.Outcome, error)
}

// Annotator is the downstream annotation seam.
type Annotator interface {
	Annotate(ctx context.Context, outputPath string) error
}

// Config bounds the extraction retry loop.
type Config struct {
	RetryAttempts   int
	RetryDelay      time.Duration
	AnnotatedOutput string
}

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 5 * time.Second
)

// Orchestrator drives Extracting → Reconciling → Annotating → Done, with
// Failed reachable from Extracting only.
type Orchestrator struct {
	src        source.Source
	reconciler Reconciler
	annotator  Annotator
	cfg        Config
	logger     *zap.Logger
}

// NewOrchestrator returns a pipeline orchestrator. Zero config fields fall
// back to defaults (3 attempts, 5s delay).
func NewOrchestrator(src source.Source, reconciler Reconciler, annotator Annotator, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Orchestrator{
		src:        src,
		reconciler: reconciler,
		annotator:  annotator,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes one pipeline cycle. Only extraction exhaustion (or
// cancellation during extraction) yields an error; a rejected or failed
// reconciliation halts the cycle before annotation but completes normally,
// and annotation failure is absorbed.
func (o *Orchestrator) Run(ctx context.Context) (State, error) {
	o.logger.Info("starting pipeline cycle")

	record, err := o.extract(ctx)
	if err != nil {
		o.logger.Error("extraction exhausted, stopping pipeline", zap.Error(err))
		return StateFailed, err
	}

	outcome, err := o.reconciler.Reconcile(ctx, record)
	if err != nil {
		// Persistence or validation failure: fatal to the cycle, not the
		// process. An unreconciled cycle is never annotated.
		o.logger.Error("reconciliation failed", zap.Error(err))
		return StateReconciling, nil
	}
	if outcome.Status.Rejected() {
		o.logger.Error("reconciliation rejected record, skipping annotation",
			zap.Int64("asset_id", record.AssetID),
			zap.String("outcome", string(outcome.Status)))
		return StateReconciling, nil
	}

	if err := o.annotator.Annotate(ctx, o.cfg.AnnotatedOutput); err != nil {
		o.logger.Error("annotation failed", zap.Error(err))
	} else {
		o.logger.Info("ledger annotated", zap.String("output", o.cfg.AnnotatedOutput))
	}

	o.logger.Info("pipeline cycle completed",
		zap.String("outcome", string(outcome.Status)))
	return StateDone, nil
}

// extract runs the bounded retry loop. The source session is acquired and
// released around every attempt regardless of outcome.
func (o *Orchestrator) extract(ctx context.Context) (models.TelemetryRecord, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.RetryAttempts; attempt++ {
		record, err := o.attempt(ctx)
		if err == nil {
			return record, nil
		}
		lastErr = err
		o.logger.Error("extraction attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", o.cfg.RetryAttempts),
			zap.Error(err))

		if attempt < o.cfg.RetryAttempts {
			if err := wait(ctx, o.cfg.RetryDelay); err != nil {
				return models.TelemetryRecord{}, err
			}
		}
	}
	return models.TelemetryRecord{}, fmt.Errorf("%w after %d attempts: %v",
		ErrExtractionExhausted, o.cfg.RetryAttempts, lastErr)
}

func (o *Orchestrator) attempt(ctx context.Context) (models.TelemetryRecord, error) {
	if err := o.src.Connect(ctx); err != nil {
		o.src.Close()
		return models.TelemetryRecord{}, err
	}
	defer o.src.Close()
	return o.src.ExtractLatest(ctx)
}

// wait blocks for the retry delay or until the context is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
