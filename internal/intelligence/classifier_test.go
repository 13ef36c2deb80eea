package intelligence

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

func intPtr(v int) *int { return &v }

func testRecord(battery *int, usage float64, errorCode string) models.TelemetryRecord {
	return models.TelemetryRecord{
		AssetID:       1001,
		Timestamp:     time.Date(2023, 10, 27, 9, 0, 0, 0, time.UTC),
		Mileage:       1500,
		BatteryHealth: battery,
		UsageHours:    usage,
		ErrorCode:     errorCode,
	}
}

func TestClassify(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	tests := []struct {
		name       string
		record     models.TelemetryRecord
		wantStatus models.Severity
		wantFlags  []string
	}{
		{
			name:       "healthy record clears",
			record:     testRecord(intPtr(90), 2, "OK"),
			wantStatus: models.SeverityCleared,
			wantFlags:  nil,
		},
		{
			name:       "missing battery escalates regardless of other fields",
			record:     testRecord(nil, 2, "OK"),
			wantStatus: models.SeverityEscalated,
			wantFlags:  []string{models.FlagDataError},
		},
		{
			name:       "low battery warns",
			record:     testRecord(intPtr(50), 2, "OK"),
			wantStatus: models.SeverityWarning,
			wantFlags:  []string{models.FlagLowBattery},
		},
		{
			name:       "high usage warns",
			record:     testRecord(intPtr(90), 12, "OK"),
			wantStatus: models.SeverityWarning,
			wantFlags:  []string{models.FlagHighUsage},
		},
		{
			name:       "device failure escalates over warning flags",
			record:     testRecord(intPtr(50), 12, "FAIL"),
			wantStatus: models.SeverityEscalated,
			wantFlags:  []string{models.FlagLowBattery, models.FlagHighUsage, models.FlagCritical},
		},
		{
			name:       "missing battery and failure both escalate",
			record:     testRecord(nil, 2, "FAIL"),
			wantStatus: models.SeverityEscalated,
			wantFlags:  []string{models.FlagDataError, models.FlagCritical},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, flags := classifier.Classify(tt.record)
			if status != tt.wantStatus {
				t.Fatalf("expected status %s, got %s", tt.wantStatus, status)
			}
			if len(flags) != len(tt.wantFlags) {
				t.Fatalf("expected flags %v, got %v", tt.wantFlags, flags)
			}
			for i, flag := range flags {
				if flag.Code != tt.wantFlags[i] {
					t.Fatalf("expected flags %v, got %v", tt.wantFlags, flags)
				}
			}
		})
	}
}
