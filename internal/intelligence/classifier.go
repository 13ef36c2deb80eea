// Package intelligence holds the live severity classifier and the
// annotation pass that runs over the finalized ledger.
package intelligence

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

// Monitoring thresholds. Looser than the ledger-gating rules on purpose:
// these drive operator attention, not ledger decisions.
const (
	LowBatteryThreshold = 75
	MaxUsageHours       = 10.0
)

// Classifier maps a single record, without history, to a severity status
// for live monitoring.
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier returns a classifier.
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify evaluates one record and returns its severity plus the flags
// that fired. A missing battery reading is a data-integrity fault and a
// device-reported FAIL is a critical fault; either escalates. Other flags
// alone raise a warning. Aside from one structured log line per record the
// classifier is pure.
func (c *Classifier) Classify(record models.TelemetryRecord) (models.Severity, []models.Anomaly) {
	var flags []models.Anomaly
	status := models.SeverityCleared

	switch {
	case record.BatteryHealth == nil:
		flags = append(flags, models.Anomaly{
			Code:   models.FlagDataError,
			Detail: "battery_health missing",
		})
		status = models.SeverityEscalated
	case *record.BatteryHealth < LowBatteryThreshold:
		flags = append(flags, models.Anomaly{
			Code:   models.FlagLowBattery,
			Detail: fmt.Sprintf("%d%%", *record.BatteryHealth),
		})
	}

	if record.UsageHours > MaxUsageHours {
		flags = append(flags, models.Anomaly{
			Code:   models.FlagHighUsage,
			Detail: fmt.Sprintf("%.1f hrs", record.UsageHours),
		})
	}

	if record.ErrorCode == models.ErrorCodeFail {
		flags = append(flags, models.Anomaly{
			Code:   models.FlagCritical,
			Detail: "SYSTEM_FAIL_ESCALATE",
		})
		status = models.SeverityEscalated
	}

	if len(flags) > 0 && status != models.SeverityEscalated {
		status = models.SeverityWarning
	}

	c.logger.Info("asset classified",
		zap.Int64("asset_id", record.AssetID),
		zap.String("status", string(status)),
		zap.Strings("flags", flagStrings(flags)))

	return status, flags
}

func flagStrings(flags []models.Anomaly) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = f.String()
	}
	return out
}
