package runner

import "context"

// Listener is the extension point for code that observes a run.
//
// ExecutionFinished is called once per finished package, test or subtest, synchronously,
// after the Recorder stopped the test case and before it is flushed. Calls for distinct
// executions may be concurrent when several sources run in parallel.
//
// RunFinished is called exactly once, after every ExecutionFinished call returned.
type Listener interface {
	ExecutionFinished(ctx context.Context, id TestIdentifier)
	RunFinished(ctx context.Context)
}

// Recorder is the reporting layer's hook into the launcher. Flush is the recorder's
// post-event bookkeeping and always runs after every listener saw the execution.
type Recorder interface {
	TestStarted(ctx context.Context, id TestIdentifier)
	Output(ctx context.Context, id TestIdentifier, line string)
	TestFinished(ctx context.Context, id TestIdentifier, outcome Outcome)
	Flush(ctx context.Context, id TestIdentifier) error
}

type executionKey struct{}

// WithExecution returns a context bound to the execution with the given unique id.
// The reporting layer uses it as its notion of "the current test".
func WithExecution(ctx context.Context, uniqueID string) context.Context {
	return context.WithValue(ctx, executionKey{}, uniqueID)
}

// ExecutionFrom returns the execution id bound by WithExecution.
func ExecutionFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(executionKey{}).(string)
	return v, ok && v != ""
}
