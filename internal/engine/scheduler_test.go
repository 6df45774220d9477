package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
	"wafaudit/internal/rules"
)

// fakeFetcher returns canned values per dependency key and records the order
// of scope keys it was asked about. scopeErrs fails every fetch for the named
// scope keys.
type fakeFetcher struct {
	mu        sync.Mutex
	values    map[data.DependencyKey]any
	errs      map[data.DependencyKey]error
	scopeErrs map[string]error
	delay     time.Duration
	seen      []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, scope azure.Scope, key data.DependencyKey, params map[string]string) (any, error) {
	f.mu.Lock()
	f.seen = append(f.seen, scope.Key())
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.scopeErrs[scope.Key()]; ok {
		return nil, err
	}
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.values[key], nil
}

func buildTestPlan(t *testing.T, subIDs ...string) *AuditPlan {
	t.Helper()
	selected := []rules.Rule{
		planRule{id: "r", level: data.ScopeSubscription, deps: []data.DependencyKey{data.DepVirtualMachines}},
	}
	plan := NewAuditPlan()
	for _, id := range subIDs {
		if err := plan.AddScope(context.Background(), azure.SubscriptionScope("t1", id, ""), selected); err != nil {
			t.Fatalf("AddScope(%s): %v", id, err)
		}
	}
	return plan
}

func collectResults(t *testing.T, resCh <-chan ScopeExecutionResult, errCh <-chan error) ([]ScopeExecutionResult, error) {
	t.Helper()
	var results []ScopeExecutionResult
	for res := range resCh {
		results = append(results, res)
	}
	return results, <-errCh
}

func TestSchedulerOneResultPerScope(t *testing.T) {
	f := &fakeFetcher{values: map[data.DependencyKey]any{data.DepVirtualMachines: "vms"}}
	s, err := NewScheduler(f, 3, time.Minute, false)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	plan := buildTestPlan(t, "s1", "s2", "s3")
	resCh, errCh := s.Execute(context.Background(), plan)
	results, runErr := collectResults(t, resCh, errCh)
	if runErr != nil {
		t.Fatalf("run error: %v", runErr)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	seen := make(map[string]bool)
	for _, res := range results {
		if seen[res.ScopeKey] {
			t.Errorf("duplicate result for scope %s", res.ScopeKey)
		}
		seen[res.ScopeKey] = true
		if res.Err != nil {
			t.Errorf("scope %s: unexpected Err %v", res.ScopeKey, res.Err)
		}
		if v, ok := res.Data.Get(data.DepVirtualMachines); !ok || v != "vms" {
			t.Errorf("scope %s: data = %v, %v", res.ScopeKey, v, ok)
		}
	}
}

func TestSchedulerSequentialOrder(t *testing.T) {
	f := &fakeFetcher{values: map[data.DependencyKey]any{data.DepVirtualMachines: "vms"}}
	s, err := NewScheduler(f, 1, time.Minute, true)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	plan := buildTestPlan(t, "s3", "s1", "s2")
	resCh, errCh := s.Execute(context.Background(), plan)
	results, runErr := collectResults(t, resCh, errCh)
	if runErr != nil {
		t.Fatalf("run error: %v", runErr)
	}
	want := []string{"s1", "s2", "s3"}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, res := range results {
		if res.ScopeKey != want[i] {
			t.Errorf("results[%d].ScopeKey = %s, want %s", i, res.ScopeKey, want[i])
		}
	}
}

func TestSchedulerConcurrentMatchesSequential(t *testing.T) {
	plan := buildTestPlan(t, "s1", "s2", "s3", "s4")

	// Renders every result to a comparable string so runs in both modes can
	// be compared as sets, independent of arrival order.
	run := func(sequential bool, concurrency int) map[string]string {
		t.Helper()
		f := &fakeFetcher{
			values:    map[data.DependencyKey]any{data.DepVirtualMachines: "vms"},
			scopeErrs: map[string]error{"s3": errors.New("listing failed")},
		}
		s, err := NewScheduler(f, concurrency, time.Minute, sequential)
		if err != nil {
			t.Fatalf("NewScheduler: %v", err)
		}
		resCh, errCh := s.Execute(context.Background(), plan)
		results, runErr := collectResults(t, resCh, errCh)
		if runErr != nil {
			t.Fatalf("run error: %v", runErr)
		}
		got := make(map[string]string, len(results))
		for _, res := range results {
			v, ok := res.Data.Get(data.DepVirtualMachines)
			got[res.ScopeKey] = fmt.Sprintf("data=%v,%v depErr=%v", v, ok, res.DepErrs[data.DepVirtualMachines])
		}
		return got
	}

	sequential := run(true, 1)
	concurrent := run(false, 4)
	if !reflect.DeepEqual(sequential, concurrent) {
		t.Errorf("result sets differ between modes:\nsequential: %v\nconcurrent: %v", sequential, concurrent)
	}

	repeat := run(false, 4)
	if !reflect.DeepEqual(concurrent, repeat) {
		t.Errorf("repeated run over the same state differs:\nfirst: %v\nsecond: %v", concurrent, repeat)
	}
}

func TestSchedulerIsolatesFailingScope(t *testing.T) {
	fetchErr := errors.New("listing failed")
	f := &fakeFetcher{
		values:    map[data.DependencyKey]any{data.DepVirtualMachines: "vms"},
		scopeErrs: map[string]error{"s2": fetchErr},
	}
	s, err := NewScheduler(f, 3, time.Minute, false)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	plan := buildTestPlan(t, "s1", "s2", "s3")
	resCh, errCh := s.Execute(context.Background(), plan)
	results, runErr := collectResults(t, resCh, errCh)
	if runErr != nil {
		t.Fatalf("run error: %v", runErr)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, res := range results {
		if res.ScopeKey == "s2" {
			if !errors.Is(res.DepErrs[data.DepVirtualMachines], fetchErr) {
				t.Errorf("s2 DepErrs = %v, want the fetch error", res.DepErrs)
			}
			continue
		}
		if len(res.DepErrs) != 0 {
			t.Errorf("scope %s DepErrs = %v, want none", res.ScopeKey, res.DepErrs)
		}
		if v, ok := res.Data.Get(data.DepVirtualMachines); !ok || v != "vms" {
			t.Errorf("scope %s data = %v, %v", res.ScopeKey, v, ok)
		}
	}
}

func TestSchedulerRecordsDependencyErrors(t *testing.T) {
	fetchErr := errors.New("throttled")
	f := &fakeFetcher{errs: map[data.DependencyKey]error{data.DepVirtualMachines: fetchErr}}
	s, err := NewScheduler(f, 1, time.Minute, false)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	plan := buildTestPlan(t, "s1")
	resCh, errCh := s.Execute(context.Background(), plan)
	results, runErr := collectResults(t, resCh, errCh)
	if runErr != nil {
		t.Fatalf("run error: %v", runErr)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	res := results[0]
	if res.Err != nil {
		t.Errorf("Err = %v, want nil for a per-dependency failure", res.Err)
	}
	if !errors.Is(res.DepErrs[data.DepVirtualMachines], fetchErr) {
		t.Errorf("DepErrs = %v", res.DepErrs)
	}
	if _, ok := res.Data.Get(data.DepVirtualMachines); ok {
		t.Error("failed dependency present in data context")
	}
}

func TestSchedulerScopeTimeout(t *testing.T) {
	f := &fakeFetcher{delay: 200 * time.Millisecond}
	s, err := NewScheduler(f, 1, 20*time.Millisecond, false)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	plan := buildTestPlan(t, "s1")
	resCh, errCh := s.Execute(context.Background(), plan)
	results, runErr := collectResults(t, resCh, errCh)
	if runErr != nil {
		t.Fatalf("run error: %v", runErr)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Err == nil {
		t.Fatal("timed-out scope has nil Err")
	}
	if !errors.Is(results[0].Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want deadline exceeded", results[0].Err)
	}
}

func TestSchedulerRunCancellation(t *testing.T) {
	f := &fakeFetcher{delay: 50 * time.Millisecond}
	s, err := NewScheduler(f, 2, time.Minute, false)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := buildTestPlan(t, "s1", "s2")
	resCh, errCh := s.Execute(ctx, plan)
	results, runErr := collectResults(t, resCh, errCh)
	if len(results) != 0 {
		t.Errorf("got %d results after cancellation, want 0", len(results))
	}
	if !errors.Is(runErr, context.Canceled) {
		t.Errorf("run error = %v, want context.Canceled", runErr)
	}
}

func TestNewSchedulerValidation(t *testing.T) {
	f := &fakeFetcher{}
	if _, err := NewScheduler(nil, 1, time.Minute, false); err == nil {
		t.Error("nil fetcher accepted")
	}
	if _, err := NewScheduler(f, 0, time.Minute, false); err == nil {
		t.Error("zero concurrency accepted")
	}
	if _, err := NewScheduler(f, 1, 0, false); err == nil {
		t.Error("zero scope timeout accepted")
	}
}
