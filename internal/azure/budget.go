package azure

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// armReadLimitHeader is decremented by ARM for every read in the subscription;
// when it reaches zero ARM starts returning 429.
const armReadLimitHeader = "x-ms-ratelimit-remaining-subscription-reads"

// RequestBudget tracks the ARM read quota observed on responses and holds
// callers back when the provider signals throttling. It is shared by every
// client built from one Client so concurrent scope workers draw from the same
// pool.
type RequestBudget struct {
	mu        sync.Mutex
	remaining int
	lowWater  int
	cooldown  time.Time
	now       func() time.Time
}

func NewRequestBudget() *RequestBudget {
	return &RequestBudget{
		remaining: 12000, // ARM default reads per subscription per hour
		lowWater:  50,
		now:       time.Now,
	}
}

func (b *RequestBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Acquire blocks while the budget is cooling down after a throttle signal.
func (b *RequestBudget) Acquire(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("Acquire: nil context")
	}
	if b == nil {
		return fmt.Errorf("Acquire: nil RequestBudget")
	}

	b.mu.Lock()
	wait := b.cooldown.Sub(b.now())
	b.mu.Unlock()
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UpdateFromResponse records the remaining quota reported by ARM and starts a
// cooldown when the response is a 429 or the quota has dropped below the low
// water mark.
func (b *RequestBudget) UpdateFromResponse(resp *http.Response) {
	if b == nil || resp == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if v := resp.Header.Get(armReadLimitHeader); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			b.remaining = n
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := 30 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		b.cooldown = b.now().Add(wait)
		return
	}

	if b.remaining > 0 && b.remaining < b.lowWater {
		// Back off briefly instead of racing the quota to zero.
		b.cooldown = b.now().Add(5 * time.Second)
	}
}
