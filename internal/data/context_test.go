package data

import "testing"

func TestMapDataContext(t *testing.T) {
	dc := NewMapDataContext(map[DependencyKey]any{DepVirtualMachines: "vms"})
	if v, ok := dc.Get(DepVirtualMachines); !ok || v != "vms" {
		t.Errorf("Get = %v, %v", v, ok)
	}
	if _, ok := dc.Get(DepScaleSets); ok {
		t.Error("absent key reported present")
	}

	empty := NewMapDataContext(nil)
	if _, ok := empty.Get(DepVirtualMachines); ok {
		t.Error("nil-backed context reported a value")
	}

	var nilCtx *MapDataContext
	if _, ok := nilCtx.Get(DepVirtualMachines); ok {
		t.Error("nil receiver reported a value")
	}
}

func TestTrackingDataContextRecordsAccesses(t *testing.T) {
	inner := NewMapDataContext(map[DependencyKey]any{DepVirtualMachines: "vms"})
	tc := NewTrackingDataContext(inner)

	if v, ok := tc.Get(DepVirtualMachines); !ok || v != "vms" {
		t.Errorf("Get = %v, %v", v, ok)
	}
	// Misses are recorded too; that is the point of tracking.
	if _, ok := tc.Get(DepScaleSets); ok {
		t.Error("absent key reported present")
	}
	tc.Get(DepVirtualMachines)

	keys := tc.AccessedKeys()
	// Sorted by key string: "sub.virtual_machines" before "sub.vm_scale_sets".
	want := []DependencyKey{DepVirtualMachines, DepScaleSets}
	if len(keys) != len(want) {
		t.Fatalf("AccessedKeys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("AccessedKeys = %v, want %v", keys, want)
		}
	}
}

func TestTrackingDataContextNilSafety(t *testing.T) {
	var tc *TrackingDataContext
	if _, ok := tc.Get(DepVirtualMachines); ok {
		t.Error("nil receiver reported a value")
	}
	if keys := tc.AccessedKeys(); keys != nil {
		t.Errorf("AccessedKeys on nil receiver = %v", keys)
	}

	wrapped := NewTrackingDataContext(nil)
	if _, ok := wrapped.Get(DepVirtualMachines); ok {
		t.Error("nil inner context reported a value")
	}
	if keys := wrapped.AccessedKeys(); len(keys) != 1 {
		t.Errorf("AccessedKeys = %v, want the attempted key", keys)
	}
}

func TestPriorityOrdering(t *testing.T) {
	if Priority(DepVirtualMachines) != 0 || Priority(DepTenantHierarchy) != 0 {
		t.Error("primary resource sets are not P0")
	}
	if Priority(DepScaleSets) != 1 || Priority(DepSQLDatabases) != 1 {
		t.Error("per-service config is not P1")
	}
	if Priority(DepReplicationProtection) != 2 || Priority("some.unknown") != 2 {
		t.Error("everything else is not P2")
	}
}
