package capture

import (
	"context"
	"fmt"
	"io"
	"tmssync/internal/runner"
)

var _ runner.Listener = (*Observer)(nil)

// Dispatcher receives the records captured during a run.
type Dispatcher interface {
	Dispatch(ctx context.Context, records []OutcomeRecord)
}

// Observer is the runner listener that captures test cases as they finish and hands
// them to a Dispatcher when the run ends.
//
// Nothing the observer does can fail the run: panics raised while capturing or
// dispatching are recovered and reported to the warning writer.
type Observer struct {
	extractor  *Extractor
	registry   *Registry
	dispatcher Dispatcher
	warn       io.Writer
}

func NewObserver(extractor *Extractor, registry *Registry, dispatcher Dispatcher, warn io.Writer) *Observer {
	return &Observer{
		extractor:  extractor,
		registry:   registry,
		dispatcher: dispatcher,
		warn:       warn,
	}
}

func (o *Observer) ExecutionFinished(ctx context.Context, id runner.TestIdentifier) {
	if id.IsContainer() {
		return
	}
	defer o.recoverPanic("capture " + id.UniqueID)
	o.extractor.Extract(ctx, id)
}

func (o *Observer) RunFinished(ctx context.Context) {
	defer o.recoverPanic("dispatch")
	records := o.registry.Drain()
	if o.dispatcher == nil {
		return
	}
	o.dispatcher.Dispatch(ctx, records)
}

func (o *Observer) recoverPanic(what string) {
	r := recover()
	if r == nil || o.warn == nil {
		return
	}
	_, _ = fmt.Fprintf(o.warn, "Warning: %s: recovered from panic: %v\n", what, r)
}
