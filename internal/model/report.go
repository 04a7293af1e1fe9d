package model

import "time"

// Severity indicates the priority of an alert
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Alert is one rule violation found by the rule engine
type Alert struct {
	Severity  Severity `json:"severity"`
	Check     string   `json:"check"`
	Message   string   `json:"message"`
	Filenames []string `json:"filenames"`
}

// Verdict is the overall classification of a run
type Verdict string

const (
	VerdictPending       Verdict = "PENDING"
	VerdictSuccess       Verdict = "SUCCESS"
	VerdictWarning       Verdict = "WARNING"
	VerdictCriticalError Verdict = "CRITICAL_ERROR"
)

// CheckStatus is the outcome of a single reported check
type CheckStatus string

const (
	CheckPass CheckStatus = "PASS"
	CheckFail CheckStatus = "FAIL"
)

// CheckResult is the external representation of one alert
type CheckResult struct {
	DocumentTitle     string      `json:"documentTitle"`
	Type              string      `json:"type"`
	CheckDisplayTitle string      `json:"checkDisplayTitle"`
	Status            CheckStatus `json:"status"`
	Message           string      `json:"message"`
}

// ValidationReport is the final artifact returned to callers of a check.
// IsComplete is set when every declared document produced facts; CheckedAt
// is ISO-8601 in UTC.
type ValidationReport struct {
	ApplicationID string        `json:"applicationId"`
	IsComplete    bool          `json:"isComplete"`
	OverallResult Verdict       `json:"overallResult"`
	CheckedAt     string        `json:"checkedAt"`
	Checks        []CheckResult `json:"checks"`
}

// ExtractedDocument is one document's extraction output as written to batch reports
type ExtractedDocument struct {
	Data     map[string]any   `json:"data"`
	Metadata DocumentMetadata `json:"metadata"`
}

// DocumentMetadata describes where extracted data came from
type DocumentMetadata struct {
	Filename     string   `json:"filename"`
	Page         int      `json:"page"`
	Category     Category `json:"category"`
	DocumentType string   `json:"document_type,omitempty"`
}

// GraphStats summarizes the size of the knowledge graph
type GraphStats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// BatchStatus is the pass/fail flag of an offline run
type BatchStatus string

const (
	BatchPass BatchStatus = "PASS"
	BatchFail BatchStatus = "FAIL"
)

// BatchReport is the output of the offline directory entrypoint
type BatchReport struct {
	ExtractedData []ExtractedDocument `json:"extracted_data"`
	GraphStats    GraphStats          `json:"graph_stats"`
	Alerts        []Alert             `json:"alerts"`
	Status        BatchStatus         `json:"status"`
}

// FormatCheckedAt renders a timestamp the way reports carry it
func FormatCheckedAt(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z")
}
