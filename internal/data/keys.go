package data

const (
	// DepVirtualMachines represents all virtual machines in a subscription,
	// reduced to the fields the compute rules inspect (zones, availability set).
	DepVirtualMachines DependencyKey = "sub.virtual_machines"

	// DepScaleSets represents all virtual machine scale sets in a subscription,
	// including their zone spread and automatic repairs policy.
	DepScaleSets DependencyKey = "sub.vm_scale_sets"

	// DepLoadBalancers represents all load balancers in a subscription,
	// including SKU and the total backend IP configuration count per balancer.
	DepLoadBalancers DependencyKey = "sub.load_balancers"

	// DepSQLDatabases represents all SQL databases in a subscription across
	// every logical server, with zone redundancy and replication link counts.
	//
	// System databases (master) are excluded at the collector boundary.
	DepSQLDatabases DependencyKey = "sub.sql_databases"

	// DepReplicationProtection represents the set of resources protected by
	// Azure Site Recovery across every Recovery Services vault in a subscription.
	DepReplicationProtection DependencyKey = "sub.asr_protection"

	// DepTenantHierarchy represents the management group tree of the tenant,
	// including which management group each subscription is parented under.
	DepTenantHierarchy DependencyKey = "tenant.hierarchy"

	// DepAuthMethodPolicy represents the tenant-wide authentication methods
	// policy: which methods (authenticator, FIDO2, SMS, ...) are enabled.
	DepAuthMethodPolicy DependencyKey = "tenant.auth_method_policy"

	// DepSecureScore represents the tenant's aggregate security posture score
	// (current and maximum points).
	DepSecureScore DependencyKey = "tenant.secure_score"
)

// Priority returns the fetch priority for a dependency key (lower is higher priority).
func Priority(key DependencyKey) int {
	switch key {
	case DepVirtualMachines, DepTenantHierarchy:
		return 0 // Primary resource sets (P0)
	case DepScaleSets, DepLoadBalancers, DepSQLDatabases, DepAuthMethodPolicy:
		return 1 // Per-service config (P1)
	default:
		return 2 // Everything else (P2)
	}
}
