package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Launcher turns test2json streams into lifecycle callbacks.
//
// Each source is consumed sequentially; sources run concurrently up to the configured
// concurrency, so listeners must tolerate concurrent ExecutionFinished calls.
type Launcher struct {
	recorder    Recorder
	listeners   []Listener
	concurrency int
	warn        io.Writer
}

type Option func(*Launcher)

// WithRecorder attaches the reporting layer. Without one, listeners still receive
// events but there is no in-flight result to inspect.
func WithRecorder(r Recorder) Option {
	return func(l *Launcher) {
		l.recorder = r
	}
}

func WithConcurrency(n int) Option {
	return func(l *Launcher) {
		l.concurrency = n
	}
}

// WithWarnings sets where non-fatal stream problems are reported. Nil silences them.
func WithWarnings(w io.Writer) Option {
	return func(l *Launcher) {
		l.warn = w
	}
}

func NewLauncher(opts ...Option) *Launcher {
	l := &Launcher{concurrency: 1}
	for _, apply := range opts {
		if apply != nil {
			apply(l)
		}
	}
	return l
}

// Register adds a listener. Listeners are notified in registration order.
// Register must not be called while Run is in progress.
func (l *Launcher) Register(ls Listener) {
	if ls == nil {
		return
	}
	l.listeners = append(l.listeners, ls)
}

// Run consumes every source and then notifies RunFinished exactly once.
//
// Source failures do not stop other sources; they are joined into the returned error.
// RunFinished is delivered even when some sources failed.
func (l *Launcher) Run(ctx context.Context, sources []Source) (Summary, error) {
	if ctx == nil {
		return Summary{}, errors.New("launcher: ctx is nil")
	}
	if l.concurrency <= 0 {
		return Summary{}, fmt.Errorf("launcher: concurrency must be >= 1, got %d", l.concurrency)
	}

	var (
		mu      sync.Mutex
		summary Summary
		errs    []error
		wg      sync.WaitGroup
	)
	sem := make(chan struct{}, l.concurrency)

	for _, src := range sources {
		if src == nil {
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			defer func() { <-sem }()

			s, err := l.runSource(ctx, src)

			mu.Lock()
			defer mu.Unlock()
			summary.merge(s)
			if err != nil {
				errs = append(errs, fmt.Errorf("source %s: %w", src.Name(), err))
			}
		}(src)
	}
	wg.Wait()

	for _, ls := range l.listeners {
		ls.RunFinished(ctx)
	}

	return summary, errors.Join(errs...)
}

func (l *Launcher) runSource(ctx context.Context, src Source) (Summary, error) {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(src.Run(ctx, pw))
	}()

	summary, err := l.Consume(ctx, pr)
	if err != nil {
		// Unblock the writer if we stopped reading early.
		pr.CloseWithError(err)
	}
	return summary, err
}

// Consume processes a single stream to completion without emitting RunFinished.
// Tests that never reported a verdict are finished as OutcomeUnknown at end of stream.
func (l *Launcher) Consume(ctx context.Context, r io.Reader) (Summary, error) {
	st := &streamState{executions: make(map[string]*execution)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		event, err := ParseEvent(line)
		if err != nil {
			l.warnf("skipping line that is not a test event: %.80q", line)
			continue
		}
		l.handle(ctx, st, event)
	}

	l.finishLingering(ctx, st, "")
	return st.summary, scanner.Err()
}

type execution struct {
	id       TestIdentifier
	children bool
}

type streamState struct {
	executions map[string]*execution
	summary    Summary
}

func (l *Launcher) handle(ctx context.Context, st *streamState, event TestEvent) {
	if event.Test == "" {
		if event.terminal() {
			l.finishLingering(ctx, st, event.Package)
			l.notify(ctx, packageIdentifier(event.Package))
			if event.Action == ActionFail {
				st.summary.FailedPackages++
			}
		}
		return
	}

	key := testKey(event.Package, event.Test)
	switch event.Action {
	case ActionRun:
		l.start(ctx, st, event)
	case ActionOutput:
		ex, ok := st.executions[key]
		if !ok || l.recorder == nil {
			return
		}
		l.recorder.Output(WithExecution(ctx, ex.id.UniqueID), ex.id, event.Output)
	case ActionPass, ActionFail, ActionSkip:
		ex, ok := st.executions[key]
		if !ok {
			// Stream began after the run event; start it so the verdict is not lost.
			ex = l.start(ctx, st, event)
		}
		l.finish(ctx, st, ex, outcomeFromAction(event.Action))
	}
}

func (l *Launcher) start(ctx context.Context, st *streamState, event TestEvent) *execution {
	key := testKey(event.Package, event.Test)
	if ex, ok := st.executions[key]; ok {
		return ex
	}

	ex := &execution{id: testIdentifier(event.Package, event.Test)}
	st.executions[key] = ex
	if parent, ok := parentName(event.Test); ok {
		if p, ok := st.executions[testKey(event.Package, parent)]; ok {
			p.children = true
		}
	}

	if l.recorder != nil {
		l.recorder.TestStarted(WithExecution(ctx, ex.id.UniqueID), ex.id)
	}
	return ex
}

func (l *Launcher) finish(ctx context.Context, st *streamState, ex *execution, outcome Outcome) {
	delete(st.executions, ex.id.UniqueID)

	id := ex.id
	id.container = ex.children
	execCtx := WithExecution(ctx, id.UniqueID)

	if l.recorder != nil {
		l.recorder.TestFinished(execCtx, id, outcome)
	}
	l.notify(execCtx, id)
	if l.recorder != nil {
		if err := l.recorder.Flush(execCtx, id); err != nil {
			l.warnf("flush %s: %v", id.UniqueID, err)
		}
	}

	if !id.IsContainer() {
		st.summary.add(outcome)
	}
}

func (l *Launcher) notify(ctx context.Context, id TestIdentifier) {
	for _, ls := range l.listeners {
		ls.ExecutionFinished(ctx, id)
	}
}

// finishLingering finishes every open execution of pkg (all packages when pkg is empty),
// deepest subtests first so parents are finished after their children.
func (l *Launcher) finishLingering(ctx context.Context, st *streamState, pkg string) {
	var open []*execution
	for _, ex := range st.executions {
		if pkg == "" || ex.id.Package == pkg {
			open = append(open, ex)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		di := strings.Count(open[i].id.Name, "/")
		dj := strings.Count(open[j].id.Name, "/")
		if di != dj {
			return di > dj
		}
		return open[i].id.UniqueID < open[j].id.UniqueID
	})

	for _, ex := range open {
		l.finish(ctx, st, ex, OutcomeUnknown)
	}
}

func (l *Launcher) warnf(format string, args ...any) {
	if l.warn == nil {
		return
	}
	_, _ = fmt.Fprintf(l.warn, "Warning: "+format+"\n", args...)
}
