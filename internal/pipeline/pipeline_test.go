package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/reconcile"
)

type fakeSource struct {
	failures int
	connects int
	closes   int
	extracts int
	record   models.TelemetryRecord
}

func (f *fakeSource) Connect(context.Context) error {
	f.connects++
	return nil
}

func (f *fakeSource) ExtractLatest(context.Context) (models.TelemetryRecord, error) {
	f.extracts++
	if f.extracts <= f.failures {
		return models.TelemetryRecord{}, errors.New("dashboard timeout")
	}
	return f.record, nil
}

func (f *fakeSource) ExtractAll(ctx context.Context) ([]models.TelemetryRecord, error) {
	record, err := f.ExtractLatest(ctx)
	if err != nil {
		return nil, err
	}
	return []models.TelemetryRecord{record}, nil
}

func (f *fakeSource) Close() error {
	f.closes++
	return nil
}

type fakeReconciler struct {
	outcome reconcile.Outcome
	err     error
	calls   int
}

func (f *fakeReconciler) Reconcile(context.Context, models.TelemetryRecord) (reconcile.Outcome, error) {
	f.calls++
	return f.outcome, f.err
}

type fakeAnnotator struct {
	err   error
	calls int
}

func (f *fakeAnnotator) Annotate(context.Context, string) error {
	f.calls++
	return f.err
}

func testConfig() Config {
	return Config{RetryAttempts: 3, RetryDelay: time.Millisecond, AnnotatedOutput: "annotated.csv"}
}

func sampleRecord() models.TelemetryRecord {
	battery := 80
	return models.TelemetryRecord{
		AssetID:       1002,
		Timestamp:     time.Date(2023, 10, 27, 9, 0, 0, 0, time.UTC),
		Mileage:       1555.5,
		BatteryHealth: &battery,
		UsageHours:    125.0,
		ErrorCode:     "OK",
	}
}

func TestRunSuccess(t *testing.T) {
	src := &fakeSource{record: sampleRecord()}
	rec := &fakeReconciler{outcome: reconcile.Outcome{Status: models.OutcomeAccepted}}
	ann := &fakeAnnotator{}

	o := NewOrchestrator(src, rec, ann, testConfig(), zap.NewNop())
	state, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state != StateDone {
		t.Fatalf("expected Done, got %s", state)
	}
	if rec.calls != 1 || ann.calls != 1 {
		t.Fatalf("expected one reconcile and one annotate, got %d/%d", rec.calls, ann.calls)
	}
	if src.connects != 1 || src.closes != 1 {
		t.Fatalf("expected one session open/close, got %d/%d", src.connects, src.closes)
	}
}

func TestRunExtractionExhaustedFails(t *testing.T) {
	src := &fakeSource{failures: 3, record: sampleRecord()}
	rec := &fakeReconciler{outcome: reconcile.Outcome{Status: models.OutcomeAccepted}}
	ann := &fakeAnnotator{}

	o := NewOrchestrator(src, rec, ann, testConfig(), zap.NewNop())
	state, err := o.Run(context.Background())
	if !errors.Is(err, ErrExtractionExhausted) {
		t.Fatalf("expected ErrExtractionExhausted, got %v", err)
	}
	if state != StateFailed {
		t.Fatalf("expected Failed, got %s", state)
	}
	if rec.calls != 0 || ann.calls != 0 {
		t.Fatalf("reconcile/annotate must never run after exhaustion, got %d/%d", rec.calls, ann.calls)
	}
	if src.connects != 3 || src.closes != 3 {
		t.Fatalf("session must be released on every attempt, got %d connects / %d closes", src.connects, src.closes)
	}
}

func TestRunRecoversWithinRetryLimit(t *testing.T) {
	src := &fakeSource{failures: 2, record: sampleRecord()}
	rec := &fakeReconciler{outcome: reconcile.Outcome{Status: models.OutcomeAccepted}}
	ann := &fakeAnnotator{}

	o := NewOrchestrator(src, rec, ann, testConfig(), zap.NewNop())
	state, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state != StateDone {
		t.Fatalf("expected Done after retries, got %s", state)
	}
	if src.extracts != 3 {
		t.Fatalf("expected 3 extraction attempts, got %d", src.extracts)
	}
}

func TestRunDuplicateHaltsBeforeAnnotation(t *testing.T) {
	src := &fakeSource{record: sampleRecord()}
	rec := &fakeReconciler{outcome: reconcile.Outcome{Status: models.OutcomeRejectedDuplicate}}
	ann := &fakeAnnotator{}

	o := NewOrchestrator(src, rec, ann, testConfig(), zap.NewNop())
	state, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("a rejected cycle completes normally, got error: %v", err)
	}
	if state != StateReconciling {
		t.Fatalf("expected halt at Reconciling, got %s", state)
	}
	if ann.calls != 0 {
		t.Fatalf("an unreconciled cycle must not be annotated")
	}
}

func TestRunReconcileErrorHaltsBeforeAnnotation(t *testing.T) {
	src := &fakeSource{record: sampleRecord()}
	rec := &fakeReconciler{err: errors.New("persist ledger: disk full")}
	ann := &fakeAnnotator{}

	o := NewOrchestrator(src, rec, ann, testConfig(), zap.NewNop())
	state, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("a failed reconciliation is fatal to the cycle, not the process: %v", err)
	}
	if state != StateReconciling {
		t.Fatalf("expected halt at Reconciling, got %s", state)
	}
	if ann.calls != 0 {
		t.Fatalf("annotation must not run after a reconciliation failure")
	}
}

func TestRunAnnotationFailureStillDone(t *testing.T) {
	src := &fakeSource{record: sampleRecord()}
	rec := &fakeReconciler{outcome: reconcile.Outcome{Status: models.OutcomeAcceptedWithAnomalies}}
	ann := &fakeAnnotator{err: errors.New("output dir read-only")}

	o := NewOrchestrator(src, rec, ann, testConfig(), zap.NewNop())
	state, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("annotation failure must be absorbed: %v", err)
	}
	if state != StateDone {
		t.Fatalf("expected Done despite annotation failure, got %s", state)
	}
}

func TestRunCancelledDuringRetryWait(t *testing.T) {
	src := &fakeSource{failures: 10, record: sampleRecord()}
	cfg := Config{RetryAttempts: 3, RetryDelay: time.Hour}

	o := NewOrchestrator(src, &fakeReconciler{}, &fakeAnnotator{}, cfg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan struct{})
	var state State
	var err error
	go func() {
		state, err = o.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("retry wait must be cancellable")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if state != StateFailed {
		t.Fatalf("expected Failed on cancellation during extraction, got %s", state)
	}
}

func TestConfigDefaults(t *testing.T) {
	o := NewOrchestrator(&fakeSource{}, &fakeReconciler{}, &fakeAnnotator{}, Config{}, zap.NewNop())
	if o.cfg.RetryAttempts != 3 {
		t.Fatalf("expected default 3 attempts, got %d", o.cfg.RetryAttempts)
	}
	if o.cfg.RetryDelay != 5*time.Second {
		t.Fatalf("expected default 5s delay, got %s", o.cfg.RetryDelay)
	}
}
