package reporting

import (
	"context"
	"strings"
	"tmssync/internal/runner"
)

var _ runner.Recorder = (*Recorder)(nil)

// Recorder feeds runner callbacks into a Lifecycle.
type Recorder struct {
	lifecycle *Lifecycle
}

func NewRecorder(l *Lifecycle) *Recorder {
	return &Recorder{lifecycle: l}
}

func (r *Recorder) TestStarted(ctx context.Context, id runner.TestIdentifier) {
	uid := r.lifecycle.StartTestCase(ctx, id.DisplayName, id.UniqueID)
	_ = r.lifecycle.UpdateTestCase(uid, func(tr *TestResult) {
		tr.Labels = append(tr.Labels,
			Label{Name: LabelPackage, Value: id.Package},
			Label{Name: LabelFramework, Value: "gotest"},
		)
		if parent, _, ok := strings.Cut(id.Name, "/"); ok {
			tr.Labels = append(tr.Labels, Label{Name: LabelParentSuite, Value: parent})
		}
	})
}

func (r *Recorder) Output(ctx context.Context, id runner.TestIdentifier, line string) {
	uid, ok := r.lifecycle.CurrentTestCase(ctx)
	if !ok {
		return
	}
	now := r.lifecycle.now().UnixMilli()

	kind, text := parseMarker(line)
	_ = r.lifecycle.UpdateTestCase(uid, func(tr *TestResult) {
		switch kind {
		case markerStep:
			tr.Steps = append(tr.Steps, StepResult{
				Name:   text,
				Status: StatusPassed,
				Stage:  StageFinished,
				Start:  now,
				Stop:   now,
			})
		case markerDescription:
			tr.Description = text
		default:
			if isFrameworkLine(line) {
				return
			}
			tr.StatusDetails.Trace += strings.TrimRight(line, "\n") + "\n"
		}
	})
}

func (r *Recorder) TestFinished(ctx context.Context, id runner.TestIdentifier, outcome runner.Outcome) {
	uid, ok := r.lifecycle.CurrentTestCase(ctx)
	if !ok {
		return
	}
	_ = r.lifecycle.UpdateTestCase(uid, func(tr *TestResult) {
		tr.Status = statusFor(outcome, tr.StatusDetails.Trace)
		switch tr.Status {
		case StatusFailed, StatusBroken:
			tr.StatusDetails.Message = firstLine(tr.StatusDetails.Trace)
			if n := len(tr.Steps); n > 0 {
				tr.Steps[n-1].Status = tr.Status
			}
		case StatusSkipped, StatusUnknown:
			for i := range tr.Steps {
				tr.Steps[i].Status = tr.Status
			}
		}
	})
	_ = r.lifecycle.StopTestCase(uid)
}

func (r *Recorder) Flush(ctx context.Context, id runner.TestIdentifier) error {
	uid, ok := r.lifecycle.CurrentTestCase(ctx)
	if !ok {
		return nil
	}
	return r.lifecycle.WriteTestCase(ctx, uid)
}

func statusFor(outcome runner.Outcome, trace string) string {
	switch outcome {
	case runner.OutcomePassed:
		return StatusPassed
	case runner.OutcomeFailed:
		for _, line := range strings.Split(trace, "\n") {
			if isPanicLine(line) {
				return StatusBroken
			}
		}
		return StatusFailed
	case runner.OutcomeSkipped:
		return StatusSkipped
	default:
		return StatusUnknown
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
