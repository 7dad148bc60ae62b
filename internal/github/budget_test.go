package github

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestRequestBudget(t *testing.T) {
	fixedNow := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	newBudget := func(remaining int, reset time.Time) *RequestBudget {
		b := NewRequestBudget()
		b.now = func() time.Time { return fixedNow }
		b.remaining = remaining
		b.reset = reset
		return b
	}

	headers := func(kv ...string) *http.Response {
		resp := &http.Response{Header: make(http.Header)}
		for i := 0; i+1 < len(kv); i += 2 {
			resp.Header.Set(kv[i], kv[i+1])
		}
		return resp
	}

	blocked := func(t *testing.T, b *RequestBudget) {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := b.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected Acquire to block until deadline, got %v", err)
		}
	}

	t.Run("Acquire decrements", func(t *testing.T) {
		b := newBudget(2, fixedNow.Add(time.Hour))
		if err := b.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if got := b.Remaining(); got != 1 {
			t.Fatalf("want 1 remaining, got %d", got)
		}
	})

	t.Run("UpdateFromResponse sets remaining and reset", func(t *testing.T) {
		b := newBudget(5000, fixedNow.Add(time.Hour))
		b.UpdateFromResponse(headers("X-RateLimit-Remaining", "10", "X-RateLimit-Reset", "1700000000"))
		if got := b.Remaining(); got != 10 {
			t.Fatalf("want 10 remaining, got %d", got)
		}
		if !b.reset.Equal(time.Unix(1700000000, 0)) {
			t.Fatalf("unexpected reset %v", b.reset)
		}
	})

	t.Run("invalid headers are ignored", func(t *testing.T) {
		b := newBudget(7, time.Unix(123, 0))
		b.UpdateFromResponse(headers("X-RateLimit-Remaining", "nope", "X-RateLimit-Reset", "later"))
		if got := b.Remaining(); got != 7 || !b.reset.Equal(time.Unix(123, 0)) {
			t.Fatalf("state changed: remaining=%d reset=%v", got, b.reset)
		}
	})

	t.Run("Retry-After blocks", func(t *testing.T) {
		b := newBudget(5000, fixedNow.Add(-time.Hour))
		b.UpdateFromResponse(headers("Retry-After", "60"))
		blocked(t, b)
	})

	t.Run("Retry-After only extends cooldown", func(t *testing.T) {
		b := newBudget(5000, fixedNow.Add(time.Hour))
		b.UpdateFromResponse(headers("Retry-After", "60"))
		b.UpdateFromResponse(headers("Retry-After", "10"))
		if !b.cooldown.Equal(fixedNow.Add(60 * time.Second)) {
			t.Fatalf("unexpected cooldown %v", b.cooldown)
		}
	})

	t.Run("exhausted before reset blocks", func(t *testing.T) {
		blocked(t, newBudget(0, fixedNow.Add(time.Hour)))
	})

	t.Run("after reset one probe until update", func(t *testing.T) {
		b := newBudget(0, fixedNow.Add(-time.Second))
		if err := b.Acquire(context.Background()); err != nil {
			t.Fatalf("probe Acquire failed: %v", err)
		}
		blocked(t, b)

		done := make(chan error, 1)
		go func() { done <- b.Acquire(context.Background()) }()
		b.UpdateFromResponse(headers("X-RateLimit-Remaining", "100"))
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Acquire after update failed: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatalf("Acquire did not wake up after UpdateFromResponse")
		}
	})

	t.Run("nil context", func(t *testing.T) {
		var nilCtx context.Context
		if err := NewRequestBudget().Acquire(nilCtx); err == nil {
			t.Fatalf("expected error")
		}
	})
}
