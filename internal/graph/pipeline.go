package graph

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

// pipelineClient is the SDK-style transport: calls go through an azcore
// pipeline, so they pick up retries, telemetry and the bearer token policy
// the ARM clients use.
type pipelineClient struct {
	pl      runtime.Pipeline
	baseURL string
}

func newPipelineClient(cred azcore.TokenCredential, baseURL string, httpClient *http.Client) (*pipelineClient, error) {
	authPolicy := runtime.NewBearerTokenPolicy(cred, []string{TokenScope}, nil)

	clientOpts := &policy.ClientOptions{}
	if httpClient != nil {
		clientOpts.Transport = httpClient
	}

	pl := runtime.NewPipeline("wafaudit.graph", "dev",
		runtime.PipelineOptions{PerRetry: []policy.Policy{authPolicy}},
		clientOpts,
	)
	return &pipelineClient{pl: pl, baseURL: baseURL}, nil
}

func (c *pipelineClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := runtime.NewRequest(ctx, http.MethodGet, c.baseURL+path)
	if err != nil {
		return nil, fmt.Errorf("graph request %s: %w", path, err)
	}
	resp, err := c.pl.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph call %s: %w", path, err)
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, runtime.NewResponseError(resp)
	}
	body, err := runtime.Payload(resp)
	if err != nil {
		return nil, fmt.Errorf("graph payload %s: %w", path, err)
	}
	return body, nil
}

func (c *pipelineClient) AuthMethodPolicy(ctx context.Context) (map[string]bool, error) {
	body, err := c.get(ctx, "/policies/authenticationMethodsPolicy")
	if err != nil {
		return nil, err
	}
	return decodeAuthMethodPolicy(body)
}

func (c *pipelineClient) SecureScore(ctx context.Context) (Score, error) {
	body, err := c.get(ctx, "/security/secureScores?$top=1")
	if err != nil {
		return Score{}, err
	}
	return decodeSecureScore(body)
}
