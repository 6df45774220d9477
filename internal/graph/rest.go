package graph

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// restClient is the raw transport: one authenticated HTTP request per call,
// no pipeline. Token acquisition still goes through the shared credential.
type restClient struct {
	cred    azcore.TokenCredential
	httpc   *http.Client
	baseURL string
}

func newRESTClient(cred azcore.TokenCredential, baseURL string, httpClient *http.Client) *restClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &restClient{cred: cred, httpc: httpClient, baseURL: baseURL}
}

func (c *restClient) get(ctx context.Context, path string) ([]byte, error) {
	tok, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{TokenScope}})
	if err != nil {
		return nil, fmt.Errorf("graph token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("graph request %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph call %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("graph payload %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph call %s: %d %s", path, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return body, nil
}

func (c *restClient) AuthMethodPolicy(ctx context.Context) (map[string]bool, error) {
	body, err := c.get(ctx, "/policies/authenticationMethodsPolicy")
	if err != nil {
		return nil, err
	}
	return decodeAuthMethodPolicy(body)
}

func (c *restClient) SecureScore(ctx context.Context) (Score, error) {
	body, err := c.get(ctx, "/security/secureScores?$top=1")
	if err != nil {
		return Score{}, err
	}
	return decodeSecureScore(body)
}
