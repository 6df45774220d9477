package checks

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/rules"
)

// VMASRProtectedRule detects virtual machines that are not replicated by
// Azure Site Recovery in any Recovery Services vault of the subscription.
type VMASRProtectedRule struct{}

func init() {
	rules.Register(&VMASRProtectedRule{})
}

func (r *VMASRProtectedRule) ID() string {
	return "vm-asr-protected"
}

func (r *VMASRProtectedRule) Title() string {
	return "VM Protected by Site Recovery"
}

func (r *VMASRProtectedRule) Description() string {
	return "Verifies that each virtual machine appears among the replication protected items " +
		"of a Recovery Services vault in its subscription. Matching is by ARM ID with a " +
		"fallback to the replicated item's friendly name."
}

func (r *VMASRProtectedRule) Category() string {
	return rules.CategoryCompute
}

func (r *VMASRProtectedRule) SubCategory() string {
	return "Virtual Machines"
}

func (r *VMASRProtectedRule) Pillar() string {
	return rules.PillarReliability
}

func (r *VMASRProtectedRule) Severity() rules.Severity {
	return rules.SeverityCritical
}

func (r *VMASRProtectedRule) Level() data.FetchScope {
	return data.ScopeSubscription
}

func (r *VMASRProtectedRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepVirtualMachines,
		data.DepReplicationProtection,
	}, nil
}

func (r *VMASRProtectedRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	vms, err := virtualMachinesFromContext(dc)
	if err != nil {
		return nil, err
	}

	val, ok := dc.Get(data.DepReplicationProtection)
	if !ok {
		return nil, fmt.Errorf("dependency %s missing", data.DepReplicationProtection)
	}
	protection, ok := val.(*models.ReplicationProtection)
	if !ok {
		return nil, fmt.Errorf("dependency %s has unexpected type %T", data.DepReplicationProtection, val)
	}

	var results []rules.Result
	for _, vm := range vms {
		if protection.Covers(vm) {
			results = append(results, rules.WithRaw(rules.PassResult(r, scope, vm.ID, vm.Name, true, true), vm))
			continue
		}
		msg := "VM is not replicated by Site Recovery"
		if protection.VaultCount == 0 {
			msg = "Subscription has no Recovery Services vault; VM is not replicated"
		}
		results = append(results, rules.WithRaw(rules.FailResult(r, scope, vm.ID, vm.Name, true, false, msg), vm))
	}
	return results, nil
}
