package graph

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// Options tunes client construction. The zero value is production-ready.
type Options struct {
	// BaseURL overrides the Graph endpoint, primarily for tests.
	BaseURL string

	// HTTPClient overrides the HTTP client used by the REST transport and the
	// pipeline transporter.
	HTTPClient *http.Client
}

// NewClient builds a Graph client over the requested transport. The transport
// is fixed for the client's lifetime.
func NewClient(cred azcore.TokenCredential, transport Transport, opts *Options) (Client, error) {
	if cred == nil {
		return nil, fmt.Errorf("graph client: credential is nil")
	}
	if opts == nil {
		opts = &Options{}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	switch transport {
	case TransportSDK:
		return newPipelineClient(cred, baseURL, opts.HTTPClient)
	case TransportREST:
		return newRESTClient(cred, baseURL, opts.HTTPClient), nil
	default:
		return nil, fmt.Errorf("unsupported graph transport: %s", transport)
	}
}
