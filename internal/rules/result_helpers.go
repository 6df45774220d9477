package rules

import (
	"encoding/json"
	"fmt"
	"time"

	"wafaudit/internal/azure"
)

// NewResult stamps the rule's classification metadata, the scope identity and
// the creation timestamp onto a fresh Result. Tenant-level results carry no
// subscription on their scope; when the resource ID names one, it is parsed
// out so sinks can still group the row by subscription.
func NewResult(r Rule, scope azure.Scope, resourceID, resourceName string, status Status, expected, actual any) Result {
	subID := scope.SubscriptionID
	if subID == "" {
		subID = azure.ParseSubscriptionID(resourceID)
	}
	return Result{
		TestName:       r.ID(),
		Category:       r.Category(),
		SubCategory:    r.SubCategory(),
		Description:    r.Description(),
		ResourceID:     resourceID,
		ResourceName:   resourceName,
		ResourceGroup:  azure.ParseResourceGroup(resourceID),
		SubscriptionID: subID,
		Expected:       expected,
		Actual:         actual,
		Status:         status,
		Timestamp:      time.Now().UTC(),
	}
}

func PassResult(r Rule, scope azure.Scope, resourceID, resourceName string, expected, actual any) Result {
	return NewResult(r, scope, resourceID, resourceName, StatusPass, expected, actual)
}

func FailResult(r Rule, scope azure.Scope, resourceID, resourceName string, expected, actual any, message string) Result {
	res := NewResult(r, scope, resourceID, resourceName, StatusFail, expected, actual)
	res.Message = message
	return res
}

func ErrorResult(r Rule, scope azure.Scope, resourceID, resourceName string, message string) Result {
	res := NewResult(r, scope, resourceID, resourceName, StatusError, nil, nil)
	res.Message = message
	return res
}

func SkippedResult(r Rule, scope azure.Scope, message string) Result {
	res := NewResult(r, scope, "", "", StatusSkipped, nil, nil)
	res.Message = message
	return res
}

// WithRaw attaches a serialized diagnostic payload to a result.
func WithRaw(res Result, v any) Result {
	res.Raw = MarshalRaw(v)
	return res
}

// MarshalRaw serializes a diagnostic payload for the Raw field. Serialization
// failures degrade to a plain string so a bad payload never fails a rule.
func MarshalRaw(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
