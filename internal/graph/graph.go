// Package graph consumes the Microsoft Graph surface the identity rules need:
// the tenant-wide authentication methods policy and the aggregate secure
// score. The contract is deliberately thin; callers never see which transport
// served a call.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// DefaultBaseURL is the Graph v1.0 endpoint.
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	// TokenScope is the OAuth scope requested for Graph calls.
	TokenScope = "https://graph.microsoft.com/.default"
)

// Score is the tenant's security posture score as reported by Graph.
type Score struct {
	Current float64
	Max     float64
}

// Client reads identity posture data from the directory provider.
//
// Implementations must be safe for concurrent use; the fetcher may be asked
// for tenant data while subscription scopes are still in flight.
type Client interface {
	// AuthMethodPolicy returns authentication method id -> enabled, with ids
	// lower-cased. Methods absent from the policy are simply missing from the
	// map, not an error.
	AuthMethodPolicy(ctx context.Context) (map[string]bool, error)

	// SecureScore returns the most recent secure score snapshot.
	SecureScore(ctx context.Context) (Score, error)
}

// Transport selects the backing call style once, at construction.
// Per-call branching between the two styles is deliberately impossible.
type Transport string

const (
	// TransportSDK routes calls through an azcore pipeline (retries, telemetry).
	TransportSDK Transport = "sdk"

	// TransportREST issues plain authenticated HTTP requests.
	TransportREST Transport = "rest"
)

func ParseTransport(raw string) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(TransportSDK):
		return TransportSDK, nil
	case string(TransportREST):
		return TransportREST, nil
	default:
		return "", fmt.Errorf("unsupported graph transport: %s (must be one of: sdk, rest)", raw)
	}
}

// Wire shapes. Graph reports method configurations as a list of
// {id, state} objects; state is "enabled" or "disabled".
type authMethodsPolicyBody struct {
	Configurations []struct {
		ID    string `json:"id"`
		State string `json:"state"`
	} `json:"authenticationMethodConfigurations"`
}

type secureScoresBody struct {
	Value []struct {
		CurrentScore float64 `json:"currentScore"`
		MaxScore     float64 `json:"maxScore"`
	} `json:"value"`
}

func decodeAuthMethodPolicy(body []byte) (map[string]bool, error) {
	var parsed authMethodsPolicyBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode authentication methods policy: %w", err)
	}
	methods := make(map[string]bool, len(parsed.Configurations))
	for _, c := range parsed.Configurations {
		if c.ID == "" {
			continue
		}
		methods[strings.ToLower(c.ID)] = strings.EqualFold(c.State, "enabled")
	}
	return methods, nil
}

func decodeSecureScore(body []byte) (Score, error) {
	var parsed secureScoresBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Score{}, fmt.Errorf("decode secure scores: %w", err)
	}
	if len(parsed.Value) == 0 {
		return Score{}, fmt.Errorf("no secure score snapshots returned")
	}
	return Score{Current: parsed.Value[0].CurrentScore, Max: parsed.Value[0].MaxScore}, nil
}
