package capture

import (
	"context"
	"fmt"
	"io"
	"tmssync/internal/runner"
)

// Extractor copies a finishing test case out of the reporting layer into the registry.
//
// Extract must run inside the runner's ExecutionFinished callback: once the reporting
// layer flushes the test case its correlation id no longer resolves.
type Extractor struct {
	source   Source
	registry *Registry
	warn     io.Writer
}

// NewExtractor returns an Extractor. warn receives diagnostics for test cases that
// could not be captured; nil keeps misses silent.
func NewExtractor(source Source, registry *Registry, warn io.Writer) *Extractor {
	return &Extractor{source: source, registry: registry, warn: warn}
}

// Extract captures the test case running in ctx. It reports whether a record was stored.
func (e *Extractor) Extract(ctx context.Context, id runner.TestIdentifier) bool {
	if e.source == nil || e.registry == nil {
		return false
	}

	correlationID, ok := e.source.CurrentCorrelationID(ctx)
	if !ok {
		e.warnf("no active test case for %s (is the reporting layer attached?)", id.UniqueID)
		return false
	}

	rec, ok := e.source.ResolveRecord(correlationID)
	if !ok {
		e.warnf("test case %s for %s already flushed", correlationID, id.UniqueID)
		return false
	}
	if rec.CorrelationID == "" {
		rec.CorrelationID = correlationID
	}
	if rec.Name == "" {
		rec.Name = id.DisplayName
	}
	return e.registry.Append(rec)
}

func (e *Extractor) warnf(format string, args ...any) {
	if e.warn == nil {
		return
	}
	_, _ = fmt.Fprintf(e.warn, "[verbose] capture: "+format+"\n", args...)
}
