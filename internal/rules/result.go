package rules

import "time"

type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusSkipped Status = "SKIPPED"
	StatusError   Status = "ERROR"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Result is one rule's verdict on one resource. It is constructed exactly
// once at evaluation time and never mutated afterwards; each audit run
// produces a fresh set.
type Result struct {
	TestName    string `json:"test_name"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category,omitempty"`
	Description string `json:"description,omitempty"`

	// Resource identity. ResourceGroup and SubscriptionID are empty for
	// tenant-scope resources.
	ResourceID     string `json:"resource_id,omitempty"`
	ResourceName   string `json:"resource_name,omitempty"`
	ResourceGroup  string `json:"resource_group,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`

	// Expected and Actual are the rule's own comparison operands: booleans,
	// strings, or short structured descriptions. Status is PASS iff Actual
	// satisfies Expected under the rule's comparison.
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual,omitempty"`
	Status   Status `json:"status"`

	// Message carries the human-readable reason for FAIL/ERROR/SKIPPED rows.
	Message string `json:"message,omitempty"`

	// Raw is an opaque diagnostic payload (typically serialized JSON) kept for
	// the audit trail.
	Raw string `json:"raw,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
