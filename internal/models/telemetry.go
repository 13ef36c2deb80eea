package models

import (
	"errors"
	"fmt"
	"time"
)

// Device-reported error codes with defined meaning. Any other non-empty
// value is treated as an opaque device code.
const (
	ErrorCodeOK   = "OK"
	ErrorCodeFail = "FAIL"
)

// TelemetryRecord is a single timestamped measurement snapshot for one asset.
type TelemetryRecord struct {
	AssetID       int64     `json:"asset_id"`
	Timestamp     time.Time `json:"timestamp"`
	Mileage       float64   `json:"mileage"`
	BatteryHealth *int      `json:"battery_health"`
	UsageHours    float64   `json:"usage_hours"`
	ErrorCode     string    `json:"error_code"`
}

// LedgerRecord is an accepted TelemetryRecord persisted in the ledger.
// Insertion order is carried by the surrounding table, not the record.
type LedgerRecord = TelemetryRecord

// Columns returns the canonical ledger column set of a record, in wire order.
// BatteryHealth is a column even when the value is absent; absence means a
// sensor fault, not a missing field.
func (r TelemetryRecord) Columns() []string {
	return []string{"asset_id", "timestamp", "mileage", "battery_health", "usage_hours", "error_code"}
}

// Validate checks the structural invariants required before a record may
// enter the reconciliation engine.
func (r TelemetryRecord) Validate() error {
	if r.AssetID <= 0 {
		return errors.New("telemetry: asset_id is required")
	}
	if r.Timestamp.IsZero() {
		return errors.New("telemetry: timestamp is required")
	}
	if r.Mileage < 0 {
		return fmt.Errorf("telemetry: negative mileage %.2f", r.Mileage)
	}
	if r.UsageHours < 0 {
		return fmt.Errorf("telemetry: negative usage_hours %.2f", r.UsageHours)
	}
	if r.BatteryHealth != nil && (*r.BatteryHealth < 0 || *r.BatteryHealth > 100) {
		return fmt.Errorf("telemetry: battery_health %d out of range", *r.BatteryHealth)
	}
	return nil
}
