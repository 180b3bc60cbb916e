package model

import "time"

// Severity classifies security events. Higher values are more severe.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// rank returns the ordering weight of a severity for comparisons
func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is the same or more severe than other
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// MaxSeverity returns the more severe of the two
func MaxSeverity(a, b Severity) Severity {
	if a.rank() >= b.rank() {
		return a
	}
	return b
}

// ToolCallRecord captures one call through the tool gateway
type ToolCallRecord struct {
	Timestamp  time.Time      `json:"timestamp"`
	Tool       string         `json:"tool"`
	Arguments  map[string]any `json:"arguments"`
	DurationMS float64        `json:"duration_ms"`
	Success    bool           `json:"success"`
}

// SecurityEvent records a flagged input pattern. Queries are truncated so
// the event log cannot be used to exfiltrate full injection payloads.
type SecurityEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	EventType  string    `json:"event_type"`
	Severity   Severity  `json:"severity"`
	Details    string    `json:"details"`
	Query      string    `json:"query,omitempty"`
	CustomerID string    `json:"customer_id,omitempty"`
}

// Exchange is one user/assistant turn retained for prompt continuity
type Exchange struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}
