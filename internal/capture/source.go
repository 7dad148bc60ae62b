package capture

import (
	"context"
	"time"
	"tmssync/internal/reporting"
)

// Source is the reporting layer capability the extractor relies on. Both methods are
// only meaningful between a test case finishing and the reporting layer flushing it.
type Source interface {
	CurrentCorrelationID(ctx context.Context) (string, bool)
	ResolveRecord(id string) (OutcomeRecord, bool)
}

// LifecycleSource exposes a reporting.Lifecycle as a Source.
type LifecycleSource struct {
	Lifecycle *reporting.Lifecycle
}

func (s LifecycleSource) CurrentCorrelationID(ctx context.Context) (string, bool) {
	if s.Lifecycle == nil {
		return "", false
	}
	return s.Lifecycle.CurrentTestCase(ctx)
}

func (s LifecycleSource) ResolveRecord(id string) (OutcomeRecord, bool) {
	if s.Lifecycle == nil {
		return OutcomeRecord{}, false
	}
	res, ok := s.Lifecycle.TestResult(id)
	if !ok {
		return OutcomeRecord{}, false
	}
	return recordFromResult(res), true
}

func recordFromResult(res reporting.TestResult) OutcomeRecord {
	rec := OutcomeRecord{
		CorrelationID: res.UUID,
		Name:          res.Name,
		FullName:      res.FullName,
		Status:        statusFromReporting(res.Status),
		Description:   res.Description,
	}
	if res.Start > 0 {
		rec.Start = time.UnixMilli(res.Start)
	}
	if res.Stop > 0 {
		rec.Stop = time.UnixMilli(res.Stop)
	}
	for _, st := range res.Steps {
		rec.Steps = append(rec.Steps, st.Name)
	}
	for _, l := range res.Labels {
		if l.Name == reporting.LabelPackage {
			rec.Package = l.Value
		}
	}
	return rec
}

func statusFromReporting(s string) Status {
	switch s {
	case reporting.StatusPassed:
		return StatusPassed
	case reporting.StatusFailed:
		return StatusFailed
	case reporting.StatusBroken:
		return StatusBroken
	case reporting.StatusSkipped:
		return StatusSkipped
	default:
		return StatusUnknown
	}
}
