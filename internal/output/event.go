package output

import "wafaudit/internal/rules"

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line), including:
// - run.started
// - category.started
// - scope.started
// - rule.result
// - scope.finished
// - scope.failed
// - run.finished
//
// JSON mode remains an aggregate of rules.Result values.
type Event struct {
	Type     string `json:"type"`
	Scope    string `json:"scope,omitempty"`
	Category string `json:"category,omitempty"`
	*rules.Result
	Scopes   int `json:"scopes,omitempty"`
	Rules    int `json:"rules,omitempty"`
	ExitCode int `json:"exit_code,omitempty"`
}

func eventFromResult(r rules.Result) Event {
	return Event{Type: "rule.result", Scope: r.SubscriptionID, Category: r.Category, Result: &r}
}
