// Package rules implements the business-rule evaluator comparing an incoming
// telemetry record to the asset's last accepted ledger record.
package rules

import (
	"fmt"
	"time"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

// Thresholds applied by the ledger-gating rules.
const (
	LowBatteryThreshold = 20
	MaxUsageHours       = 5000.0
)

// Evaluate runs every business rule against (incoming, last) and returns the
// anomalies in fixed rule order. Rules are independent; none short-circuits
// another. The one exception is DUPLICATE, which is only meaningful when the
// timestamp did not regress: equal timestamps are a replay, earlier ones are
// a BR-05 regression.
func Evaluate(incoming models.TelemetryRecord, last models.LedgerRecord) []models.Anomaly {
	var anomalies []models.Anomaly

	// BR-00: defensive; the repository lookup contract should make this impossible.
	if incoming.AssetID != last.AssetID {
		anomalies = append(anomalies, models.Anomaly{
			Code:   models.CodeAssetMismatch,
			Detail: fmt.Sprintf("asset id mismatch: incoming %d, ledger %d", incoming.AssetID, last.AssetID),
		})
	}

	// BR-01: mileage is monotonically non-decreasing per asset.
	if incoming.Mileage < last.Mileage {
		anomalies = append(anomalies, models.Anomaly{
			Code:   models.CodeMileageDecrease,
			Detail: fmt.Sprintf("mileage decreased from %.2f to %.2f", last.Mileage, incoming.Mileage),
		})
	}

	// BR-02: battery health below threshold. A missing reading is a sensor
	// fault handled by the live classifier, not a ledger anomaly.
	if incoming.BatteryHealth != nil && *incoming.BatteryHealth < LowBatteryThreshold {
		anomalies = append(anomalies, models.Anomaly{
			Code:   models.CodeLowBattery,
			Detail: fmt.Sprintf("battery health %d%% below %d%%", *incoming.BatteryHealth, LowBatteryThreshold),
		})
	}

	// BR-03: device reported failure.
	if incoming.ErrorCode == models.ErrorCodeFail {
		anomalies = append(anomalies, models.Anomaly{
			Code:   models.CodeErrorReported,
			Detail: "device reported error code FAIL",
		})
	}

	// BR-04: usage hours ceiling.
	if incoming.UsageHours > MaxUsageHours {
		anomalies = append(anomalies, models.Anomaly{
			Code:   models.CodeUsageExceeded,
			Detail: fmt.Sprintf("usage hours %.1f exceed %.0f", incoming.UsageHours, MaxUsageHours),
		})
	}

	// BR-05 / DUPLICATE: time is monotonically non-decreasing per asset, and
	// an exact timestamp match is a replay of the latest entry.
	switch {
	case incoming.Timestamp.Before(last.Timestamp):
		anomalies = append(anomalies, models.Anomaly{
			Code:   models.CodeTimestampOlder,
			Detail: fmt.Sprintf("timestamp %s older than ledger %s", incoming.Timestamp.UTC().Format(time.RFC3339), last.Timestamp.UTC().Format(time.RFC3339)),
		})
	case incoming.Timestamp.Equal(last.Timestamp):
		anomalies = append(anomalies, models.Anomaly{
			Code:   models.CodeDuplicate,
			Detail: "entry already exists in ledger",
		})
	}

	return anomalies
}

// HasCode reports whether the anomaly list contains the given code.
func HasCode(anomalies []models.Anomaly, code string) bool {
	for _, a := range anomalies {
		if a.Code == code {
			return true
		}
	}
	return false
}
