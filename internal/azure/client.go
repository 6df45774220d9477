package azure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/managementgroups/armmanagementgroups"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/recoveryservices/armrecoveryservices"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/recoveryservicessiterecovery/armrecoveryservicessiterecovery/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/sql/armsql"
)

// Client bundles the credential, shared pipeline options and throttle budget
// every ARM client in the process is built from.
type Client struct {
	cred   azcore.TokenCredential
	opts   *arm.ClientOptions
	budget *RequestBudget
}

type options struct {
	verbose bool
	// writer controls where verbose HTTP logs are written (typically stderr) so
	// structured output on stdout (e.g. NDJSON) stays clean and tests can capture logs.
	writer    io.Writer
	transport policy.Transporter
}

type Option func(*options)

func WithVerbose(enabled bool, writer io.Writer) Option {
	return func(o *options) {
		o.verbose = enabled
		o.writer = writer
	}
}

// WithTransport overrides the HTTP transport, primarily for tests.
func WithTransport(t policy.Transporter) Option {
	return func(o *options) {
		o.transport = t
	}
}

// loggingPolicy emits one line per request and response (including latency)
// when verbose logging is enabled.
type loggingPolicy struct {
	w io.Writer
}

func (p *loggingPolicy) Do(req *policy.Request) (*http.Response, error) {
	start := time.Now()
	if p.w != nil {
		_, _ = fmt.Fprintf(p.w, "[verbose] azure api: %s %s\n", req.Raw().Method, req.Raw().URL.String())
	}
	resp, err := req.Next()
	dur := time.Since(start)
	if p.w != nil {
		if err != nil {
			_, _ = fmt.Fprintf(p.w, "[verbose] azure api: error after %s: %v\n", dur.Truncate(time.Millisecond), err)
		} else {
			_, _ = fmt.Fprintf(p.w, "[verbose] azure api: %d %s (%s)\n", resp.StatusCode, http.StatusText(resp.StatusCode), dur.Truncate(time.Millisecond))
		}
	}
	return resp, err
}

// budgetPolicy feeds the shared RequestBudget from every ARM response and
// holds requests back during a throttle cooldown.
type budgetPolicy struct {
	b *RequestBudget
}

func (p *budgetPolicy) Do(req *policy.Request) (*http.Response, error) {
	if err := p.b.Acquire(req.Raw().Context()); err != nil {
		return nil, err
	}
	resp, err := req.Next()
	if resp != nil {
		p.b.UpdateFromResponse(resp)
	}
	return resp, err
}

func NewClient(ctx context.Context, cred azcore.TokenCredential, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("azure client: ctx is nil")
	}
	if cred == nil {
		return nil, fmt.Errorf("azure client: credential is nil")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}

	budget := NewRequestBudget()
	perRetry := []policy.Policy{&budgetPolicy{b: budget}}
	if o.verbose {
		w := o.writer
		if w == nil {
			w = io.Discard
		}
		perRetry = append(perRetry, &loggingPolicy{w: w})
	}

	armOpts := &arm.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			PerRetryPolicies: perRetry,
			Transport:        o.transport,
		},
	}

	return &Client{cred: cred, opts: armOpts, budget: budget}, nil
}

func (c *Client) Credential() azcore.TokenCredential {
	return c.cred
}

func (c *Client) Budget() *RequestBudget {
	return c.budget
}

// CurrentTenant resolves the tenant ID of the active credential. It doubles
// as the authenticated-context check: an unauthenticated session fails here,
// before any scope work begins.
func (c *Client) CurrentTenant(ctx context.Context) (string, error) {
	tenants, err := armsubscriptions.NewTenantsClient(c.cred, c.opts)
	if err != nil {
		return "", fmt.Errorf("tenants client: %w", err)
	}
	pager := tenants.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("list tenants: %w", err)
		}
		for _, t := range page.Value {
			if t != nil && t.TenantID != nil && *t.TenantID != "" {
				return *t.TenantID, nil
			}
		}
	}
	return "", fmt.Errorf("no tenant visible to the current credential")
}

func (c *Client) Subscriptions() (*armsubscriptions.Client, error) {
	return armsubscriptions.NewClient(c.cred, c.opts)
}

func (c *Client) VirtualMachines(subscriptionID string) (*armcompute.VirtualMachinesClient, error) {
	return armcompute.NewVirtualMachinesClient(subscriptionID, c.cred, c.opts)
}

func (c *Client) ScaleSets(subscriptionID string) (*armcompute.VirtualMachineScaleSetsClient, error) {
	return armcompute.NewVirtualMachineScaleSetsClient(subscriptionID, c.cred, c.opts)
}

func (c *Client) LoadBalancers(subscriptionID string) (*armnetwork.LoadBalancersClient, error) {
	return armnetwork.NewLoadBalancersClient(subscriptionID, c.cred, c.opts)
}

func (c *Client) SQLServers(subscriptionID string) (*armsql.ServersClient, error) {
	return armsql.NewServersClient(subscriptionID, c.cred, c.opts)
}

func (c *Client) SQLDatabases(subscriptionID string) (*armsql.DatabasesClient, error) {
	return armsql.NewDatabasesClient(subscriptionID, c.cred, c.opts)
}

func (c *Client) SQLReplicationLinks(subscriptionID string) (*armsql.ReplicationLinksClient, error) {
	return armsql.NewReplicationLinksClient(subscriptionID, c.cred, c.opts)
}

func (c *Client) RecoveryVaults(subscriptionID string) (*armrecoveryservices.VaultsClient, error) {
	return armrecoveryservices.NewVaultsClient(subscriptionID, c.cred, c.opts)
}

func (c *Client) ReplicationProtectedItems(subscriptionID string) (*armrecoveryservicessiterecovery.ReplicationProtectedItemsClient, error) {
	return armrecoveryservicessiterecovery.NewReplicationProtectedItemsClient(subscriptionID, c.cred, c.opts)
}

func (c *Client) ManagementGroupEntities() (*armmanagementgroups.EntitiesClient, error) {
	return armmanagementgroups.NewEntitiesClient(c.cred, c.opts)
}
