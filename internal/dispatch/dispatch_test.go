package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"tmssync/internal/capture"
	"tmssync/internal/tms"
)

// memoryTMS is a counting in-memory tms.Client.
type memoryTMS struct {
	mu      sync.Mutex
	cases   map[string]tms.Entity
	creates int
	updates int
	fail    map[string]error
}

func newMemoryTMS() *memoryTMS {
	return &memoryTMS{cases: make(map[string]tms.Entity), fail: make(map[string]error)}
}

func (m *memoryTMS) FindByName(_ context.Context, name string) (*tms.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[name]; err != nil {
		return nil, err
	}
	e, ok := m.cases[name]
	if !ok {
		return nil, tms.ErrNotFound
	}
	return &e, nil
}

func (m *memoryTMS) Create(_ context.Context, c tms.Case) (*tms.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	e := tms.Entity{ID: fmt.Sprintf("TC-%d", m.creates), Case: c}
	m.cases[c.Name] = e
	return &e, nil
}

func (m *memoryTMS) Update(_ context.Context, e tms.Entity, c tms.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	m.cases[c.Name] = tms.Entity{ID: e.ID, Case: c}
	return nil
}

type sliceWriter struct {
	mu   sync.Mutex
	vals []any
}

func (w *sliceWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.vals = append(w.vals, v)
	return nil
}

type panicReconciler struct{}

func (panicReconciler) Reconcile(context.Context, tms.Case) (tms.Result, error) {
	panic("backend exploded")
}

func rec(name string, status capture.Status, steps ...string) capture.OutcomeRecord {
	return capture.OutcomeRecord{CorrelationID: "id-" + name, Name: name, Package: "example.com/app", Status: status, Steps: steps}
}

func TestDispatch_OnlyPassedReachTheTMS(t *testing.T) {
	m := newMemoryTMS()
	out := &sliceWriter{}
	d := New(tms.NewReconciler(m), WithOutput(out), WithConcurrency(4))

	d.Dispatch(context.Background(), []capture.OutcomeRecord{
		rec("TestA", capture.StatusPassed, "s1"),
		rec("TestB", capture.StatusFailed),
	})

	if m.creates != 1 {
		t.Fatalf("want exactly one create, got %d", m.creates)
	}
	if _, ok := m.cases["TestA"]; !ok {
		t.Fatalf("TestA not synced: %+v", m.cases)
	}

	want := Summary{Considered: 2, Skipped: 1, Created: 1}
	if got := d.Summary(); got != want {
		t.Fatalf("summary: got %+v want %+v", got, want)
	}

	results := d.Results()
	if results[1].Test != "TestB" || results[1].Action != ActionSkipped || results[1].Message != "status FAILED" {
		t.Fatalf("unexpected skipped result: %+v", results[1])
	}

	var records, syncs int
	for _, v := range out.vals {
		switch v.(type) {
		case capture.OutcomeRecord:
			records++
		case Result:
			syncs++
		}
	}
	if records != 2 || syncs != 2 {
		t.Fatalf("want 2 records and 2 results written, got %d and %d", records, syncs)
	}
}

func TestDispatch_FailureIsolation(t *testing.T) {
	m := newMemoryTMS()
	m.fail["TestA"] = errors.New("connection reset")
	d := New(tms.NewReconciler(m), WithConcurrency(2))

	d.Dispatch(context.Background(), []capture.OutcomeRecord{
		rec("TestA", capture.StatusPassed),
		rec("TestB", capture.StatusPassed),
	})

	if _, ok := m.cases["TestB"]; !ok {
		t.Fatalf("TestB must be synced even though TestA failed")
	}
	results := d.Results()
	if results[0].Action != ActionError || !strings.Contains(results[0].Message, "connection reset") {
		t.Fatalf("unexpected TestA result: %+v", results[0])
	}
	if results[1].Action != ActionCreated || results[1].ID != "TC-1" {
		t.Fatalf("unexpected TestB result: %+v", results[1])
	}
	if got := d.Summary(); got.Failed != 1 || got.Created != 1 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestDispatch_IsIdempotent(t *testing.T) {
	m := newMemoryTMS()
	records := []capture.OutcomeRecord{
		rec("TestA", capture.StatusPassed, "open", "submit"),
		rec("TestB/case_1", capture.StatusPassed),
	}

	first := New(tms.NewReconciler(m), WithConcurrency(2))
	first.Dispatch(context.Background(), records)
	second := New(tms.NewReconciler(m), WithConcurrency(2))
	second.Dispatch(context.Background(), records)

	if m.creates != 2 || m.updates != 0 {
		t.Fatalf("second dispatch must not mutate: creates=%d updates=%d", m.creates, m.updates)
	}
	if got := second.Summary(); got.Unchanged != 2 {
		t.Fatalf("second dispatch: want 2 unchanged, got %+v", got)
	}
	if got := second.Results(); got[1].Case != "TestB/case 1" {
		t.Fatalf("case name must be normalized, got %q", got[1].Case)
	}
}

func TestDispatch_RecoversReconcilerPanic(t *testing.T) {
	d := New(panicReconciler{})
	d.Dispatch(context.Background(), []capture.OutcomeRecord{rec("TestA", capture.StatusPassed)})

	results := d.Results()
	if len(results) != 1 || results[0].Action != ActionError || !strings.Contains(results[0].Message, "backend exploded") {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestDispatch_NoReconcilerSkipsEverything(t *testing.T) {
	d := New(nil)
	d.Dispatch(context.Background(), []capture.OutcomeRecord{
		rec("TestA", capture.StatusPassed),
		rec("TestB", capture.StatusSkipped),
	})
	if got := d.Summary(); got != (Summary{Considered: 2, Skipped: 2}) {
		t.Fatalf("unexpected summary %+v", got)
	}
	if got := d.Results()[0].Message; got != "no TMS configured" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestDispatch_Concurrency(t *testing.T) {
	m := newMemoryTMS()
	var records []capture.OutcomeRecord
	for i := 0; i < 100; i++ {
		records = append(records, rec(fmt.Sprintf("Test%03d", i), capture.StatusPassed))
	}
	d := New(tms.NewReconciler(m), WithConcurrency(8))
	d.Dispatch(context.Background(), records)

	if m.creates != 100 {
		t.Fatalf("want 100 creates, got %d", m.creates)
	}
	if got := d.Summary(); got.Considered != 100 || got.Created != 100 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

// ctxCheckingTMS fails every call whose context is already done.
type ctxCheckingTMS struct{ *memoryTMS }

func (m ctxCheckingTMS) FindByName(ctx context.Context, name string) (*tms.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.memoryTMS.FindByName(ctx, name)
}

func TestDispatch_TimeoutDetachesFromSpentRunContext(t *testing.T) {
	runCtx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-runCtx.Done()

	tests := []struct {
		name        string
		opts        []Option
		wantCreated int
		wantFailed  int
	}{
		{name: "own deadline", opts: []Option{WithTimeout(time.Minute)}, wantCreated: 2},
		{name: "inherits run deadline", wantFailed: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ctxCheckingTMS{newMemoryTMS()}
			d := New(tms.NewReconciler(m), tt.opts...)

			d.Dispatch(runCtx, []capture.OutcomeRecord{
				rec("TestA", capture.StatusPassed),
				rec("TestB", capture.StatusPassed),
			})

			got := d.Summary()
			if got.Created != tt.wantCreated || got.Failed != tt.wantFailed {
				t.Fatalf("summary: %+v, want created=%d failed=%d", got, tt.wantCreated, tt.wantFailed)
			}
		})
	}
}
