package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"wafaudit/internal/data"
)

type depErrorDisposition int

const (
	depErrDispositionError depErrorDisposition = iota
	depErrDispositionSkip
)

type depErrorPresentation struct {
	disposition depErrorDisposition
	message     string
	verbose     string
}

// isSkippableErrorCode reports whether an ARM error code means the resource
// provider simply is not in use in the subscription. A subscription that never
// registered Microsoft.RecoveryServices has nothing to protect with it; the
// rule is skipped rather than errored.
func isSkippableErrorCode(code string) bool {
	switch code {
	case "NoRegisteredProviderFound", "SubscriptionNotRegistered", "MissingSubscriptionRegistration":
		return true
	default:
		return false
	}
}

func presentDependencyError(key data.DependencyKey, err error, verbose bool) depErrorPresentation {
	if err == nil {
		return depErrorPresentation{disposition: depErrDispositionError, message: "unknown error"}
	}

	full := err.Error()

	// Prefer the structured ARM error type to avoid leaking full request URLs.
	var re *azcore.ResponseError
	if errors.As(err, &re) {
		code := strings.TrimSpace(re.ErrorCode)
		if re.StatusCode == http.StatusNotFound || isSkippableErrorCode(code) {
			msg := fmt.Sprintf("resource type for %s is not available in this scope", key)
			if code != "" {
				msg = fmt.Sprintf("%s (%s)", msg, code)
			}
			return depErrorPresentation{disposition: depErrDispositionSkip, message: msg, verbose: full}
		}

		if verbose {
			return depErrorPresentation{disposition: depErrDispositionError, message: full, verbose: full}
		}

		status := fmt.Sprintf("%d %s", re.StatusCode, http.StatusText(re.StatusCode))
		if code == "" {
			return depErrorPresentation{disposition: depErrDispositionError, message: fmt.Sprintf("Azure API request failed (%s)", status)}
		}
		return depErrorPresentation{disposition: depErrDispositionError, message: fmt.Sprintf("Azure API request failed (%s): %s", status, code)}
	}

	// Fallback: best-effort scrub to avoid printing full request details.
	s := strings.TrimSpace(full)
	if verbose {
		return depErrorPresentation{disposition: depErrDispositionError, message: full, verbose: full}
	}
	if scrubbed := scrubRequestFromErrorString(s); scrubbed != "" {
		return depErrorPresentation{disposition: depErrDispositionError, message: scrubbed}
	}
	return depErrorPresentation{disposition: depErrDispositionError, message: s}
}

func scrubRequestFromErrorString(s string) string {
	// Typical transport error format:
	//   GET https://management.azure.com/...: 403 Some message.
	// We want to drop the leading "GET https://...: " part.
	methods := []string{"GET ", "POST ", "PUT ", "PATCH ", "DELETE "}
	for _, m := range methods {
		if strings.HasPrefix(s, m) {
			if i := strings.Index(s, "https://"); i >= 0 {
				if j := strings.Index(s[i:], ": "); j >= 0 {
					return strings.TrimSpace(s[i+j+2:])
				}
			}
			if j := strings.Index(s, ": "); j >= 0 {
				return strings.TrimSpace(s[j+2:])
			}
			break
		}
	}
	return ""
}
