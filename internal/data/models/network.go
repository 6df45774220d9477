package models

// LoadBalancer is the view of an Azure load balancer the network rules inspect.
//
// BackendIPConfigurations is the total number of IP configurations across all
// backend address pools, counting both NIC-attached configurations and
// address-based backend entries.
type LoadBalancer struct {
	ID                      string
	Name                    string
	ResourceGroup           string
	SKU                     string
	BackendPools            int
	BackendIPConfigurations int
}
