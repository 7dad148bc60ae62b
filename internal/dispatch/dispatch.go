// Package dispatch forwards the passing test cases of a run to a TMS.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
	"tmssync/internal/capture"
	"tmssync/internal/tms"

	"golang.org/x/sync/errgroup"
)

// Action is what happened to one captured record.
type Action string

const (
	ActionCreated   = Action(tms.ActionCreated)
	ActionUpdated   = Action(tms.ActionUpdated)
	ActionUnchanged = Action(tms.ActionUnchanged)
	// ActionSkipped marks records that were not synced (not PASSED, or no TMS).
	ActionSkipped Action = "skipped"
	ActionError   Action = "error"
)

// Result is the sync outcome of one captured record.
type Result struct {
	Test          string         `json:"test"`
	Package       string         `json:"package,omitempty"`
	Case          string         `json:"case,omitempty"`
	Status        capture.Status `json:"status"`
	Action        Action         `json:"action"`
	ID            string         `json:"id,omitempty"`
	Message       string         `json:"message,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// Summary counts sync outcomes for a run.
type Summary struct {
	Considered int `json:"considered"`
	Skipped    int `json:"skipped"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Unchanged  int `json:"unchanged"`
	Failed     int `json:"failed"`
}

func (s *Summary) add(a Action) {
	switch a {
	case ActionCreated:
		s.Created++
	case ActionUpdated:
		s.Updated++
	case ActionUnchanged:
		s.Unchanged++
	case ActionError:
		s.Failed++
	default:
		s.Skipped++
	}
}

// Reconciler is the TMS side of a dispatch; *tms.Reconciler satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, c tms.Case) (tms.Result, error)
}

// Writer receives one capture.OutcomeRecord per captured test case, then one Result
// per record. output.Manager satisfies it.
type Writer interface {
	Write(v any) error
}

// Dispatcher syncs captured records at the end of a run.
//
// Only PASSED records reach the TMS. Every record is reconciled on its own: a failure
// is reported as an ActionError result and never affects the other records.
type Dispatcher struct {
	reconciler  Reconciler
	out         Writer
	warn        io.Writer
	concurrency int
	timeout     time.Duration

	mu      sync.Mutex
	summary Summary
	results []Result
}

var _ capture.Dispatcher = (*Dispatcher)(nil)

type Option func(*Dispatcher)

func WithOutput(w Writer) Option {
	return func(d *Dispatcher) {
		d.out = w
	}
}

// WithWarnings sets where output write failures are reported.
func WithWarnings(w io.Writer) Option {
	return func(d *Dispatcher) {
		d.warn = w
	}
}

// WithTimeout gives Dispatch its own deadline, detached from the caller's: the run's
// context may already be spent by the tests when the sync starts.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.timeout = d
	}
}

func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		d.concurrency = n
	}
}

// New returns a Dispatcher. A nil reconciler disables syncing; records are still
// reported, as skipped.
func New(reconciler Reconciler, opts ...Option) *Dispatcher {
	d := &Dispatcher{reconciler: reconciler, concurrency: 1}
	for _, apply := range opts {
		if apply != nil {
			apply(d)
		}
	}
	if d.concurrency < 1 {
		d.concurrency = 1
	}
	return d
}

// Dispatch reconciles every PASSED record and blocks until all of them are done.
func (d *Dispatcher) Dispatch(ctx context.Context, records []capture.OutcomeRecord) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
	}

	for _, rec := range records {
		d.write(rec)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for _, rec := range records {
		if rec.Status != capture.StatusPassed || d.reconciler == nil {
			d.record(skipped(rec))
			continue
		}
		g.Go(func() error {
			d.record(d.sync(gctx, rec))
			// Never fail the group: one record must not cancel the others.
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) sync(ctx context.Context, rec capture.OutcomeRecord) (res Result) {
	res = baseResult(rec)
	res.Case = tms.NormalizeName(rec.Name)

	defer func() {
		if r := recover(); r != nil {
			res.Action = ActionError
			res.Message = fmt.Sprintf("panic: %v", r)
		}
	}()

	out, err := d.reconciler.Reconcile(ctx, tms.Case{
		Name:        rec.Name,
		Description: rec.Description,
		Steps:       rec.Steps,
	})
	if err != nil {
		res.Action = ActionError
		res.Message = err.Error()
		return res
	}
	res.Action = Action(out.Action)
	res.ID = out.ID
	return res
}

func skipped(rec capture.OutcomeRecord) Result {
	res := baseResult(rec)
	res.Action = ActionSkipped
	if rec.Status != capture.StatusPassed {
		res.Message = "status " + string(rec.Status)
	} else {
		res.Message = "no TMS configured"
	}
	return res
}

func baseResult(rec capture.OutcomeRecord) Result {
	return Result{
		Test:          rec.Name,
		Package:       rec.Package,
		Status:        rec.Status,
		CorrelationID: rec.CorrelationID,
	}
}

func (d *Dispatcher) record(res Result) {
	d.mu.Lock()
	d.summary.Considered++
	d.summary.add(res.Action)
	d.results = append(d.results, res)
	d.mu.Unlock()

	d.write(res)
}

func (d *Dispatcher) write(v any) {
	if d.out == nil {
		return
	}
	if err := d.out.Write(v); err != nil && d.warn != nil {
		_, _ = fmt.Fprintf(d.warn, "Warning: output: %v\n", err)
	}
}

// Summary returns the counts accumulated by Dispatch.
func (d *Dispatcher) Summary() Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.summary
}

// Results returns the per-record results sorted by package and test.
func (d *Dispatcher) Results() []Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := append([]Result(nil), d.results...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Package != out[j].Package {
			return out[i].Package < out[j].Package
		}
		return out[i].Test < out[j].Test
	})
	return out
}
