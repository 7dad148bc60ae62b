package output

import (
	"tmssync/internal/capture"
	"tmssync/internal/dispatch"
	"tmssync/internal/runner"
)

// Event types streamed in NDJSON mode.
const (
	EventRunStarted   = "run.started"
	EventTestCaptured = "test.captured"
	EventSyncResult   = "sync.result"
	EventRunFinished  = "run.finished"
)

// Event is a lifecycle record for NDJSON streaming output.
//
// Sinks receive capture.OutcomeRecord and dispatch.Result values from the dispatcher
// and wrap them as test.captured and sync.result events. The engine writes
// run.started and run.finished itself.
//
// JSON mode remains an aggregate of dispatch.Result values.
type Event struct {
	Type string `json:"type"`
	*dispatch.Result
	Record *capture.OutcomeRecord `json:"record,omitempty"`

	Backend  string            `json:"backend,omitempty"`
	Sources  int               `json:"sources,omitempty"`
	Command  string            `json:"command,omitempty"`
	Tests    *runner.Summary   `json:"tests,omitempty"`
	Sync     *dispatch.Summary `json:"sync,omitempty"`
	ExitCode int               `json:"exit_code,omitempty"`
}

// toEvent converts any value a sink may receive into its NDJSON event.
func toEvent(v any) (Event, bool) {
	switch t := v.(type) {
	case Event:
		return t, true
	case dispatch.Result:
		return Event{Type: EventSyncResult, Result: &t}, true
	case capture.OutcomeRecord:
		return Event{Type: EventTestCaptured, Record: &t}, true
	default:
		return Event{}, false
	}
}
