package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"tmssync/internal/dispatch"
)

const (
	formatJSON   = "json"
	formatNDJSON = "ndjson"
)

// structured encodes sink input in one of the machine formats:
//   - json: sync results are collected and written as one JSON array by finish
//   - ndjson: every value toEvent understands is written as one line immediately
type structured struct {
	w       io.Writer
	format  string
	results []dispatch.Result
}

func (s *structured) write(v any) error {
	if s.format == formatJSON {
		if r, ok := v.(dispatch.Result); ok {
			s.results = append(s.results, r)
		}
		return nil
	}
	e, ok := toEvent(v)
	if !ok {
		return nil
	}
	if err := json.NewEncoder(s.w).Encode(e); err != nil {
		return err
	}
	return flushIfPossible(s.w)
}

func (s *structured) finish() error {
	if s.format != formatJSON {
		return nil
	}
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(nonNil(s.results)); err != nil {
		return err
	}
	return flushIfPossible(s.w)
}

// EmitSink writes an additional structured stream to stdout (--emit).
type EmitSink struct {
	mu  sync.Mutex
	enc structured
}

func NewEmitSink(w io.Writer, format string) (*EmitSink, error) {
	if w == nil {
		return nil, fmt.Errorf("emit sink writer must not be nil")
	}
	if format != formatJSON && format != formatNDJSON {
		return nil, fmt.Errorf("unsupported emit format: %s", format)
	}
	return &EmitSink{enc: structured{w: w, format: format}}, nil
}

func (s *EmitSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.write(v)
}

func (s *EmitSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.finish()
}
