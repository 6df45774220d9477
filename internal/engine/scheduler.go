package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wafaudit/internal/azure"
	"wafaudit/internal/data"
)

// DependencyFetcher is the fetching seam the scheduler drives. Satisfied by
// *fetcher.Fetcher in production and by fakes in tests.
type DependencyFetcher interface {
	Fetch(ctx context.Context, scope azure.Scope, key data.DependencyKey, params map[string]string) (any, error)
}

type Scheduler struct {
	fetcher      DependencyFetcher
	concurrency  int
	scopeTimeout time.Duration
	sequential   bool
}

func NewScheduler(f DependencyFetcher, concurrency int, scopeTimeout time.Duration, sequential bool) (*Scheduler, error) {
	if f == nil {
		return nil, errors.New("fetcher is nil")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	if scopeTimeout <= 0 {
		return nil, fmt.Errorf("scope timeout must be > 0, got %s", scopeTimeout)
	}
	return &Scheduler{
		fetcher:      f,
		concurrency:  concurrency,
		scopeTimeout: scopeTimeout,
		sequential:   sequential,
	}, nil
}

// Execute streams per-scope dependency fetch completion results.
//
// Channel semantics:
//   - In the normal (non-canceled) case, exactly one ScopeExecutionResult is
//     sent per planned scope.
//   - On context cancellation, the scheduler stops promptly; it may emit fewer
//     than N results.
//   - The results channel and error channel are both closed reliably.
//   - The error channel carries fatal errors / cancellation signals; scope
//     timeouts surface on ScopeExecutionResult.Err and per-dependency fetch
//     failures on ScopeExecutionResult.DepErrs.
//
// In sequential mode scopes are processed one at a time in sorted key order;
// results then arrive in that order. In concurrent mode ordering is not
// defined beyond the one-result-per-scope guarantee.
func (s *Scheduler) Execute(ctx context.Context, plan *AuditPlan) (<-chan ScopeExecutionResult, <-chan error) {
	resultsCh := make(chan ScopeExecutionResult)
	errCh := make(chan error, 1)

	go func() {
		defer close(resultsCh)
		defer close(errCh)

		trySendErr := func(err error) {
			if err == nil {
				return
			}
			select {
			case errCh <- err:
			default:
			}
		}

		if ctx == nil {
			trySendErr(errors.New("context is nil"))
			return
		}
		if plan == nil {
			trySendErr(errors.New("audit plan is nil"))
			return
		}
		if plan.ScopePlans == nil {
			trySendErr(errors.New("audit plan is not initialized (ScopePlans is nil); use NewAuditPlan"))
			return
		}
		if s == nil || s.fetcher == nil {
			trySendErr(errors.New("scheduler is not initialized; use NewScheduler"))
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		scopeKeys := plan.SortedScopeKeys()

		if s.sequential {
			for _, key := range scopeKeys {
				if runCtx.Err() != nil {
					break
				}
				sp := plan.ScopePlans[key]
				if sp == nil {
					trySendErr(errors.New("nil scope plan"))
					return
				}
				res, ok := s.fetchScope(runCtx, sp)
				if !ok {
					break
				}
				select {
				case resultsCh <- res:
				case <-runCtx.Done():
				}
			}
			trySendErr(ctx.Err())
			return
		}

		// Limit active scopes (favor scope completion).
		sem := make(chan struct{}, s.concurrency)
		var wg sync.WaitGroup

		var fatalErr error

	scheduleLoop:
		for _, key := range scopeKeys {
			if runCtx.Err() != nil {
				break
			}
			sp := plan.ScopePlans[key]
			if sp == nil {
				fatalErr = errors.New("nil scope plan")
				cancel()
				break
			}

			select {
			case sem <- struct{}{}:
				// acquired
			case <-runCtx.Done():
				break scheduleLoop
			}

			wg.Add(1)
			go func(sp *ScopePlan) {
				defer wg.Done()
				defer func() { <-sem }()

				res, ok := s.fetchScope(runCtx, sp)
				if !ok {
					return
				}
				select {
				case resultsCh <- res:
				case <-runCtx.Done():
				}
			}(sp)
		}

		wg.Wait()
		if fatalErr != nil {
			trySendErr(fatalErr)
			return
		}
		trySendErr(ctx.Err())
	}()

	return resultsCh, errCh
}

// fetchScope fetches every planned dependency for one scope under the scope
// timeout. It returns ok=false only when the surrounding run was canceled;
// a scope timeout is reported on the result itself so the engine can mark
// the scope failed without aborting the run.
func (s *Scheduler) fetchScope(runCtx context.Context, sp *ScopePlan) (ScopeExecutionResult, bool) {
	scopeCtx, cancel := context.WithTimeout(runCtx, s.scopeTimeout)
	defer cancel()

	dataMap := make(map[data.DependencyKey]any)
	depErrs := make(map[data.DependencyKey]error)

	for _, key := range sp.SortedDependencies() {
		if scopeCtx.Err() != nil {
			break
		}
		req := sp.Dependencies[key]
		val, err := s.fetcher.Fetch(scopeCtx, sp.Scope, req.Key, req.Params)
		if err != nil {
			depErrs[req.Key] = err
			continue
		}
		dataMap[req.Key] = val
	}

	if runCtx.Err() != nil {
		return ScopeExecutionResult{}, false
	}

	res := ScopeExecutionResult{
		ScopeKey: sp.Scope.Key(),
		Data:     data.NewMapDataContext(dataMap),
		DepErrs:  depErrs,
	}
	if err := scopeCtx.Err(); err != nil {
		res.Err = fmt.Errorf("scope %s did not complete within %s: %w", sp.Scope, s.scopeTimeout, err)
	}
	return res, true
}
