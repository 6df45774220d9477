package azure

import (
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

type CredentialSource string

const (
	CredentialSourceEnvironment CredentialSource = "env:AZURE_CLIENT_ID"
	CredentialSourceAzureCLI    CredentialSource = "az"
)

// ResolveCredential resolves an Azure credential.
//
// Precedence:
//  1. service principal from AZURE_TENANT_ID / AZURE_CLIENT_ID (+ secret or
//     certificate) environment variables
//  2. Azure CLI login (`az login`)
//
// The choice is made once here; nothing downstream branches on the source.
// It never prints secrets.
func ResolveCredential() (cred azcore.TokenCredential, source CredentialSource, err error) {
	if envCredentialConfigured() {
		cred, err = azidentity.NewEnvironmentCredential(nil)
		if err != nil {
			return nil, "", fmt.Errorf("environment credential: %w", err)
		}
		return cred, CredentialSourceEnvironment, nil
	}

	cred, err = azidentity.NewAzureCLICredential(nil)
	if err != nil {
		return nil, "", fmt.Errorf("azure cli credential: %w", err)
	}
	return cred, CredentialSourceAzureCLI, nil
}

func envCredentialConfigured() bool {
	tenant := strings.TrimSpace(os.Getenv("AZURE_TENANT_ID"))
	client := strings.TrimSpace(os.Getenv("AZURE_CLIENT_ID"))
	secret := strings.TrimSpace(os.Getenv("AZURE_CLIENT_SECRET"))
	certPath := strings.TrimSpace(os.Getenv("AZURE_CLIENT_CERTIFICATE_PATH"))
	return tenant != "" && client != "" && (secret != "" || certPath != "")
}
