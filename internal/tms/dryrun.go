package tms

import (
	"context"
	"fmt"
	"io"
)

// DryRun wraps a Client so lookups go through but nothing is created or updated.
// Intended mutations are logged to W when it is set.
type DryRun struct {
	Client Client
	W      io.Writer
}

func (d DryRun) FindByName(ctx context.Context, name string) (*Entity, error) {
	return d.Client.FindByName(ctx, name)
}

func (d DryRun) Create(_ context.Context, c Case) (*Entity, error) {
	d.logf("would create %q (%d steps)", c.Name, len(c.Steps))
	return &Entity{Case: c}, nil
}

func (d DryRun) Update(_ context.Context, e Entity, c Case) error {
	d.logf("would update %q (%s)", c.Name, e.ID)
	return nil
}

func (d DryRun) logf(format string, args ...any) {
	if d.W == nil {
		return
	}
	_, _ = fmt.Fprintf(d.W, "[dry-run] "+format+"\n", args...)
}
