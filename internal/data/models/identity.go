package models

import (
	"fmt"
	"strings"
)

// AuthMethodPolicy is the tenant-wide authentication methods policy reduced to
// method-id -> enabled. Keys are stored lower-cased.
type AuthMethodPolicy struct {
	Methods map[string]bool
}

// Enabled reports whether the named authentication method is enabled.
// Lookup is case-insensitive; unknown methods report false, never an error.
func (p *AuthMethodPolicy) Enabled(method string) bool {
	if p == nil {
		return false
	}
	return p.Methods[strings.ToLower(method)]
}

// SecureScore is the tenant's aggregate security posture score.
type SecureScore struct {
	Current float64
	Max     float64
}

// Percent returns the score as a whole percentage, 0 when Max is 0.
func (s SecureScore) Percent() float64 {
	if s.Max <= 0 {
		return 0
	}
	return s.Current / s.Max * 100
}

func (s SecureScore) String() string {
	return fmt.Sprintf("%.0f%% (%.0f of %.0f points)", s.Percent(), s.Current, s.Max)
}
