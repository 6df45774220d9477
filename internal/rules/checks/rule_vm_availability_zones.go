package checks

import (
	"context"
	"fmt"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/data/models"
	"wafaudit/internal/rules"
)

// VMAvailabilityZonesRule detects virtual machines that are not pinned to any
// availability zone. A zoneless single-instance VM goes down with its host.
type VMAvailabilityZonesRule struct{}

func init() {
	rules.Register(&VMAvailabilityZonesRule{})
}

func (r *VMAvailabilityZonesRule) ID() string {
	return "vm-availability-zones"
}

func (r *VMAvailabilityZonesRule) Title() string {
	return "VM Uses Availability Zones"
}

func (r *VMAvailabilityZonesRule) Description() string {
	return "Verifies that each virtual machine is deployed into at least one availability zone."
}

func (r *VMAvailabilityZonesRule) Category() string {
	return rules.CategoryCompute
}

func (r *VMAvailabilityZonesRule) SubCategory() string {
	return "Virtual Machines"
}

func (r *VMAvailabilityZonesRule) Pillar() string {
	return rules.PillarReliability
}

func (r *VMAvailabilityZonesRule) Severity() rules.Severity {
	return rules.SeverityHigh
}

func (r *VMAvailabilityZonesRule) Level() data.FetchScope {
	return data.ScopeSubscription
}

func (r *VMAvailabilityZonesRule) Dependencies(ctx context.Context, scope azure.Scope) ([]data.DependencyKey, error) {
	return []data.DependencyKey{
		data.DepVirtualMachines,
	}, nil
}

func (r *VMAvailabilityZonesRule) Evaluate(ctx context.Context, scope azure.Scope, dc data.DataContext) ([]rules.Result, error) {
	vms, err := virtualMachinesFromContext(dc)
	if err != nil {
		return nil, err
	}

	var results []rules.Result
	for _, vm := range vms {
		zoned := len(vm.Zones) >= 1
		if zoned {
			results = append(results, rules.WithRaw(rules.PassResult(r, scope, vm.ID, vm.Name, true, true), vm))
			continue
		}
		results = append(results, rules.WithRaw(rules.FailResult(r, scope, vm.ID, vm.Name, true, false,
			"VM is not deployed into any availability zone"), vm))
	}
	return results, nil
}

func virtualMachinesFromContext(dc data.DataContext) ([]models.VirtualMachine, error) {
	val, ok := dc.Get(data.DepVirtualMachines)
	if !ok {
		return nil, fmt.Errorf("dependency %s missing", data.DepVirtualMachines)
	}
	vms, ok := val.([]models.VirtualMachine)
	if !ok {
		return nil, fmt.Errorf("dependency %s has unexpected type %T", data.DepVirtualMachines, val)
	}
	return vms, nil
}
