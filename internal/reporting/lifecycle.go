package reporting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"tmssync/internal/runner"

	"github.com/google/uuid"
)

// ErrUnknownTestCase is returned when a uuid does not name an in-flight test case.
var ErrUnknownTestCase = errors.New("unknown test case")

// Lifecycle holds in-flight test cases until they are written.
//
// Every test case gets a fresh uuid when it starts. The uuid is also registered as the
// current test case of the execution bound to the context (see runner.WithExecution).
// WriteTestCase persists the result, evicts it and clears the execution's current
// uuid; from then on the uuid no longer resolves.
type Lifecycle struct {
	mu      sync.RWMutex
	storage map[string]*TestResult
	current map[string]string // execution id -> uuid

	writer ResultsWriter
	now    func() time.Time
	newID  func() string
}

func NewLifecycle(w ResultsWriter) *Lifecycle {
	if w == nil {
		w = Discard
	}
	return &Lifecycle{
		storage: make(map[string]*TestResult),
		current: make(map[string]string),
		writer:  w,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// StartTestCase registers a new running test case for the execution bound to ctx and
// returns its uuid.
func (l *Lifecycle) StartTestCase(ctx context.Context, name, fullName string) string {
	id := l.newID()
	result := &TestResult{
		UUID:      id,
		HistoryID: uuid.NewSHA1(uuid.NameSpaceURL, []byte(fullName)).String(),
		Name:      name,
		FullName:  fullName,
		Stage:     StageRunning,
		Steps:     []StepResult{},
		Start:     l.now().UnixMilli(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.storage[id] = result
	if exec, ok := runner.ExecutionFrom(ctx); ok {
		l.current[exec] = id
	}
	return id
}

// CurrentTestCase returns the uuid of the test case running in the execution bound to
// ctx.
func (l *Lifecycle) CurrentTestCase(ctx context.Context) (string, bool) {
	exec, ok := runner.ExecutionFrom(ctx)
	if !ok {
		return "", false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.current[exec]
	return id, ok
}

// UpdateTestCase applies fn to the stored test case under the lifecycle lock.
func (l *Lifecycle) UpdateTestCase(id string, fn func(*TestResult)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	result, ok := l.storage[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrUnknownTestCase)
	}
	fn(result)
	return nil
}

// StopTestCase marks the test case finished. It stays resolvable until written.
func (l *Lifecycle) StopTestCase(id string) error {
	stop := l.now().UnixMilli()
	return l.UpdateTestCase(id, func(r *TestResult) {
		r.Stage = StageFinished
		r.Stop = stop
	})
}

// TestResult returns a copy of an in-flight test case.
func (l *Lifecycle) TestResult(id string) (TestResult, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result, ok := l.storage[id]
	if !ok {
		return TestResult{}, false
	}
	return result.clone(), true
}

// WriteTestCase persists the test case and forgets it.
func (l *Lifecycle) WriteTestCase(ctx context.Context, id string) error {
	l.mu.Lock()
	result, ok := l.storage[id]
	if ok {
		delete(l.storage, id)
		if exec, bound := runner.ExecutionFrom(ctx); bound && l.current[exec] == id {
			delete(l.current, exec)
		}
	}
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("write %s: %w", id, ErrUnknownTestCase)
	}
	return l.writer.Write(*result)
}

// InFlight returns how many test cases are started but not yet written.
func (l *Lifecycle) InFlight() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.storage)
}
