package models

// VirtualMachine is the view of an Azure VM the compute rules inspect.
// Collectors validate and flatten SDK objects into this shape so rules never
// touch optional SDK pointers.
type VirtualMachine struct {
	ID                string
	Name              string
	ResourceGroup     string
	Location          string
	Zones             []string
	AvailabilitySetID string
}

// ScaleSet is the view of a virtual machine scale set the compute rules inspect.
type ScaleSet struct {
	ID                      string
	Name                    string
	ResourceGroup           string
	Location                string
	Zones                   []string
	AutomaticRepairsEnabled bool
}

// ReplicationProtection reports which resources in a subscription are
// protected by Azure Site Recovery, aggregated across all Recovery Services
// vaults. IDs are the ARM identifiers of the protected source resources,
// lower-cased; FriendlyNames backs a name match when a provider does not
// report the source ARM ID.
type ReplicationProtection struct {
	VaultCount    int
	ProtectedIDs  []string
	FriendlyNames []string
}

// Covers reports whether a VM is protected, matching by ARM ID first and
// falling back to the replicated item's friendly name.
func (r *ReplicationProtection) Covers(vm VirtualMachine) bool {
	if r == nil {
		return false
	}
	for _, id := range r.ProtectedIDs {
		if id != "" && equalFoldASCII(id, vm.ID) {
			return true
		}
	}
	for _, name := range r.FriendlyNames {
		if name != "" && equalFoldASCII(name, vm.Name) {
			return true
		}
	}
	return false
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
