package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RequestBudget paces API calls against GitHub's rate limit headers.
//
// It starts optimistic, then tracks X-RateLimit-Remaining / X-RateLimit-Reset and
// Retry-After from every response. Once the budget is exhausted, callers block until
// the reset; after the reset a single probe request is let through to refresh it.
type RequestBudget struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	cooldown  time.Time
	probed    bool
	changed   chan struct{}
	now       func() time.Time
}

func NewRequestBudget() *RequestBudget {
	return &RequestBudget{
		remaining: 5000,
		reset:     time.Now().Add(time.Hour),
		changed:   make(chan struct{}),
		now:       time.Now,
	}
}

func (b *RequestBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Acquire takes one request from the budget, waiting as long as ctx allows.
func (b *RequestBudget) Acquire(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("acquire: nil context")
	}
	for {
		wait, changed, ok := b.tryAcquire()
		if ok {
			return nil
		}
		if err := sleep(ctx, wait, changed); err != nil {
			return err
		}
	}
}

// tryAcquire returns ok, or how long to wait (0 = until changed fires).
func (b *RequestBudget) tryAcquire() (time.Duration, <-chan struct{}, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()

	switch {
	case now.Before(b.cooldown):
		return b.cooldown.Sub(now), b.changed, false
	case b.remaining > 0:
		b.remaining--
		return 0, nil, true
	case now.Before(b.reset):
		return b.reset.Sub(now), b.changed, false
	case !b.probed:
		b.probed = true
		return 0, nil, true
	default:
		return 0, b.changed, false
	}
}

func sleep(ctx context.Context, wait time.Duration, changed <-chan struct{}) error {
	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-changed:
	case <-timeout:
	}
	return nil
}

// UpdateFromResponse folds the rate limit headers of resp into the budget.
func (b *RequestBudget) UpdateFromResponse(resp *http.Response) {
	if b == nil || resp == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	changed := false
	if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && v > 0 {
		if until := b.now().Add(time.Duration(v) * time.Second); until.After(b.cooldown) {
			b.cooldown = until
			changed = true
		}
	}
	if v, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining")); err == nil && v >= 0 && v != b.remaining {
		b.remaining = v
		changed = true
	}
	if v, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil && v > 0 {
		if reset := time.Unix(v, 0); !reset.Equal(b.reset) {
			b.reset = reset
			changed = true
		}
	}

	if changed {
		b.probed = false
		close(b.changed)
		b.changed = make(chan struct{})
	}
}

type budgetRoundTripper struct {
	base   http.RoundTripper
	budget *RequestBudget
}

func (t *budgetRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.budget.Acquire(req.Context()); err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(req)
	if err == nil {
		t.budget.UpdateFromResponse(resp)
	}
	return resp, err
}
