package tms

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"tmssync/internal/config"
)

// Options carries process-wide settings a backend may honor.
type Options struct {
	Verbose bool
	// Log receives diagnostics (stderr in the CLI).
	Log io.Writer
}

// Factory builds a Client from the validated TMS configuration.
type Factory func(ctx context.Context, cfg config.TMS, opts Options) (Client, error)

// Backend is a registered TMS implementation.
type Backend struct {
	Name        string
	Description string
	New         Factory
}

var (
	registry = make(map[string]Backend)
	mu       sync.RWMutex
)

// Register makes a backend selectable by name. It panics on duplicates.
func Register(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[b.Name]; exists {
		panic(fmt.Sprintf("tms backend %s already registered", b.Name))
	}
	registry[b.Name] = b
}

func List() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	var backends []Backend
	for _, b := range registry {
		backends = append(backends, b)
	}
	sort.Slice(backends, func(i, j int) bool {
		return backends[i].Name < backends[j].Name
	})
	return backends
}

// Open builds the client for cfg.Backend. It returns a nil client for the "none"
// backend. With cfg.DryRun set the client is wrapped in DryRun.
func Open(ctx context.Context, cfg config.TMS, opts Options) (Client, error) {
	if cfg.Backend == "" || cfg.Backend == config.BackendNone {
		return nil, nil
	}

	mu.RLock()
	b, ok := registry[cfg.Backend]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("tms backend not found: %s", cfg.Backend)
	}

	client, err := b.New(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	if cfg.DryRun {
		return DryRun{Client: client, W: opts.Log}, nil
	}
	return client, nil
}

// Close releases client resources when the backend holds any.
func Close(client Client) error {
	switch c := client.(type) {
	case DryRun:
		return Close(c.Client)
	case io.Closer:
		return c.Close()
	}
	return nil
}
