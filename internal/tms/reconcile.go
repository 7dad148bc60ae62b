package tms

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Result describes what reconciling one case did.
type Result struct {
	Action Action
	ID     string
	// Shared is set when the call was collapsed into a concurrent reconciliation of
	// the same case.
	Shared bool
}

// Reconciler makes a TMS match a case: create when missing, update when the content
// differs, otherwise leave it alone. Reconciling the same case twice is a no-op the
// second time.
type Reconciler struct {
	client Client
	group  singleflight.Group
}

func NewReconciler(client Client) *Reconciler {
	return &Reconciler{client: client}
}

// Reconcile syncs c. Concurrent calls for the same normalized name share one lookup
// and at most one create.
func (r *Reconciler) Reconcile(ctx context.Context, c Case) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("reconcile: ctx is nil")
	}
	if r.client == nil {
		return Result{}, errors.New("reconcile: no TMS client")
	}
	c.Name = NormalizeName(c.Name)
	if c.Name == "" {
		return Result{}, errors.New("reconcile: case has no name")
	}

	v, err, shared := r.group.Do(c.Name, func() (interface{}, error) {
		return r.reconcile(ctx, c)
	})
	if err != nil {
		return Result{}, err
	}
	res := v.(Result)
	res.Shared = shared
	return res, nil
}

func (r *Reconciler) reconcile(ctx context.Context, c Case) (Result, error) {
	existing, err := r.client.FindByName(ctx, c.Name)
	switch {
	case errors.Is(err, ErrNotFound):
		created, err := r.client.Create(ctx, c)
		if err != nil {
			return Result{}, fmt.Errorf("create %q: %w", c.Name, err)
		}
		id := ""
		if created != nil {
			id = created.ID
		}
		return Result{Action: ActionCreated, ID: id}, nil
	case err != nil:
		return Result{}, fmt.Errorf("find %q: %w", c.Name, err)
	case existing == nil:
		return Result{}, fmt.Errorf("find %q: client returned no entity and no error", c.Name)
	}

	if Equal(existing.Case, c) {
		return Result{Action: ActionUnchanged, ID: existing.ID}, nil
	}
	if err := r.client.Update(ctx, *existing, c); err != nil {
		return Result{}, fmt.Errorf("update %q (%s): %w", c.Name, existing.ID, err)
	}
	return Result{Action: ActionUpdated, ID: existing.ID}, nil
}
