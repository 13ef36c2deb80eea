package models

// Stable anomaly code identifiers emitted by the business-rule evaluator.
const (
	CodeAssetMismatch   = "BR-00"
	CodeMileageDecrease = "BR-01"
	CodeLowBattery      = "BR-02"
	CodeErrorReported   = "BR-03"
	CodeUsageExceeded   = "BR-04"
	CodeTimestampOlder  = "BR-05"
	CodeDuplicate       = "DUPLICATE"
)

// Severity flags emitted by the live classifier.
const (
	FlagDataError  = "DATA_ERROR"
	FlagLowBattery = "LOW_BATTERY"
	FlagHighUsage  = "HIGH_USAGE"
	FlagCritical   = "CRITICAL"
)

// Anomaly is a detected rule violation or data-quality issue.
type Anomaly struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func (a Anomaly) String() string {
	return a.Code + ": " + a.Detail
}

// Severity classifies a single record for live monitoring.
type Severity string

const (
	SeverityCleared   Severity = "CLEARED"
	SeverityWarning   Severity = "WARNING"
	SeverityEscalated Severity = "ESCALATED"
)

// OutcomeStatus is the reconciliation decision for one incoming record.
type OutcomeStatus string

const (
	OutcomeAccepted              OutcomeStatus = "accepted"
	OutcomeAcceptedWithAnomalies OutcomeStatus = "accepted_with_anomalies"
	OutcomeRejectedDuplicate     OutcomeStatus = "rejected_duplicate"
	OutcomeRejectedNoPrior       OutcomeStatus = "rejected_no_prior_record"
)

// Rejected reports whether the status blocked the ledger write.
func (s OutcomeStatus) Rejected() bool {
	return s == OutcomeRejectedDuplicate || s == OutcomeRejectedNoPrior
}
