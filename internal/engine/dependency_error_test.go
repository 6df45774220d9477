package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"wafaudit/internal/data"
)

func TestScrubRequestFromErrorString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			"GET https://management.azure.com/subscriptions/s1/providers: 403 insufficient privileges",
			"403 insufficient privileges",
		},
		{
			"POST https://graph.microsoft.com/v1.0/security/secureScores: 401 token expired",
			"401 token expired",
		},
		{"plain error with no request prefix", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := scrubRequestFromErrorString(tt.in); got != tt.want {
			t.Errorf("scrubRequestFromErrorString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsSkippableErrorCode(t *testing.T) {
	for _, code := range []string{"NoRegisteredProviderFound", "SubscriptionNotRegistered", "MissingSubscriptionRegistration"} {
		if !isSkippableErrorCode(code) {
			t.Errorf("isSkippableErrorCode(%q) = false, want true", code)
		}
	}
	for _, code := range []string{"", "AuthorizationFailed", "InternalServerError"} {
		if isSkippableErrorCode(code) {
			t.Errorf("isSkippableErrorCode(%q) = true, want false", code)
		}
	}
}

func TestPresentDependencyErrorResponseError(t *testing.T) {
	tests := []struct {
		name            string
		statusCode      int
		errorCode       string
		wantDisposition depErrorDisposition
		wantMsg         string
	}{
		{"not found", 404, "", depErrDispositionSkip, "is not available in this scope"},
		{"provider not registered", 409, "MissingSubscriptionRegistration", depErrDispositionSkip, "(MissingSubscriptionRegistration)"},
		{"forbidden", 403, "AuthorizationFailed", depErrDispositionError, "Azure API request failed (403 Forbidden): AuthorizationFailed"},
		{"server error without code", 500, "", depErrDispositionError, "Azure API request failed (500 Internal Server Error)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &azcore.ResponseError{StatusCode: tt.statusCode, ErrorCode: tt.errorCode}
			p := presentDependencyError(data.DepReplicationProtection, err, false)
			if p.disposition != tt.wantDisposition {
				t.Errorf("disposition = %v, want %v", p.disposition, tt.wantDisposition)
			}
			if !strings.Contains(p.message, tt.wantMsg) {
				t.Errorf("message = %q, want substring %q", p.message, tt.wantMsg)
			}
		})
	}

	// Wrapped response errors are still recognized.
	wrapped := fmt.Errorf("fetch %s: %w", data.DepScaleSets, &azcore.ResponseError{StatusCode: 404})
	if p := presentDependencyError(data.DepScaleSets, wrapped, false); p.disposition != depErrDispositionSkip {
		t.Errorf("wrapped 404 disposition = %v, want skip", p.disposition)
	}
}

func TestPresentDependencyErrorFallbackScrubbing(t *testing.T) {
	err := fmt.Errorf("GET https://management.azure.com/subscriptions/s1/resourceGroups: 500 backend unavailable")
	p := presentDependencyError(data.DepVirtualMachines, err, false)
	if p.disposition != depErrDispositionError {
		t.Errorf("disposition = %v, want error", p.disposition)
	}
	if strings.Contains(p.message, "https://") {
		t.Errorf("message leaks request URL: %q", p.message)
	}
	if !strings.Contains(p.message, "backend unavailable") {
		t.Errorf("message = %q", p.message)
	}

	// Verbose keeps the full error text.
	p = presentDependencyError(data.DepVirtualMachines, err, true)
	if !strings.Contains(p.message, "https://") {
		t.Errorf("verbose message = %q, want full error", p.message)
	}
}

func TestPresentDependencyErrorPlain(t *testing.T) {
	p := presentDependencyError(data.DepScaleSets, errors.New("dial tcp: connection refused"), false)
	if p.disposition != depErrDispositionError {
		t.Errorf("disposition = %v, want error", p.disposition)
	}
	if p.message != "dial tcp: connection refused" {
		t.Errorf("message = %q", p.message)
	}

	p = presentDependencyError(data.DepScaleSets, nil, false)
	if p.message != "unknown error" {
		t.Errorf("nil error message = %q", p.message)
	}
}
