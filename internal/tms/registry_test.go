package tms

import (
	"context"
	"errors"
	"testing"
	"tmssync/internal/config"
)

type closingClient struct {
	*countingClient
	closed bool
}

func (c *closingClient) Close() error {
	c.closed = true
	return nil
}

func TestRegistry(t *testing.T) {
	// Clear registry for test
	mu.Lock()
	saved := registry
	registry = make(map[string]Backend)
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		registry = saved
		mu.Unlock()
	})

	client := &closingClient{countingClient: newCountingClient()}
	Register(Backend{Name: "zeta", Description: "z", New: func(context.Context, config.TMS, Options) (Client, error) {
		return client, nil
	}})
	Register(Backend{Name: "alpha", Description: "a", New: func(context.Context, config.TMS, Options) (Client, error) {
		return nil, errors.New("unreachable")
	}})

	all := List()
	if len(all) != 2 || all[0].Name != "alpha" || all[1].Name != "zeta" {
		t.Fatalf("List() not sorted by name: %+v", all)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Errorf("expected panic on duplicate registration")
			}
		}()
		Register(Backend{Name: "zeta"})
	}()

	ctx := context.Background()
	if c, err := Open(ctx, config.TMS{Backend: config.BackendNone}, Options{}); c != nil || err != nil {
		t.Fatalf("none backend: got %v %v", c, err)
	}
	if _, err := Open(ctx, config.TMS{Backend: "missing"}, Options{}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if _, err := Open(ctx, config.TMS{Backend: "alpha"}, Options{}); err == nil {
		t.Fatalf("expected factory error")
	}

	c, err := Open(ctx, config.TMS{Backend: "zeta", DryRun: true}, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := c.(DryRun); !ok {
		t.Fatalf("dry-run must wrap the client, got %T", c)
	}
	if err := Close(c); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !client.closed {
		t.Fatalf("Close must reach the wrapped client")
	}
}
