package models

import (
	"encoding/json"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func validRecord() TelemetryRecord {
	return TelemetryRecord{
		AssetID:       1002,
		Timestamp:     time.Date(2023, 10, 27, 9, 0, 0, 0, time.UTC),
		Mileage:       1555.5,
		BatteryHealth: intPtr(80),
		UsageHours:    125.0,
		ErrorCode:     "OK",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TelemetryRecord)
		wantErr bool
	}{
		{"valid", func(*TelemetryRecord) {}, false},
		{"nil battery is valid", func(r *TelemetryRecord) { r.BatteryHealth = nil }, false},
		{"missing asset id", func(r *TelemetryRecord) { r.AssetID = 0 }, true},
		{"zero timestamp", func(r *TelemetryRecord) { r.Timestamp = time.Time{} }, true},
		{"negative mileage", func(r *TelemetryRecord) { r.Mileage = -1 }, true},
		{"negative usage", func(r *TelemetryRecord) { r.UsageHours = -0.5 }, true},
		{"battery above range", func(r *TelemetryRecord) { r.BatteryHealth = intPtr(101) }, true},
		{"battery below range", func(r *TelemetryRecord) { r.BatteryHealth = intPtr(-1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			tt.mutate(&record)
			err := record.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(validRecord())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range validRecord().Columns() {
		if !json.Valid(data) {
			t.Fatalf("invalid json: %s", data)
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if _, ok := raw[field]; !ok {
			t.Fatalf("expected json field %q in %s", field, data)
		}
	}
}
