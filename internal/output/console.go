package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"tmssync/internal/dispatch"

	"github.com/fatih/color"
)

type ConsoleSink struct {
	writer         io.Writer
	format         string // "text", "json", "ndjson"
	mu             sync.Mutex
	enc            structured
	allowedActions map[dispatch.Action]bool
}

var actionColors = map[dispatch.Action]*color.Color{
	dispatch.ActionCreated:   color.New(color.FgGreen, color.Bold),
	dispatch.ActionUpdated:   color.New(color.FgCyan),
	dispatch.ActionUnchanged: color.New(color.Faint),
	dispatch.ActionSkipped:   color.New(color.FgYellow),
	dispatch.ActionError:     color.New(color.FgRed, color.Bold),
}

// NewConsoleSink returns the human-facing sink. filterActions limits which sync
// results are shown (case-insensitive); empty shows all.
func NewConsoleSink(w io.Writer, format string, filterActions ...string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	s := &ConsoleSink{
		writer: w,
		format: format,
		enc:    structured{w: w, format: format},
	}
	if len(filterActions) > 0 {
		s.allowedActions = make(map[dispatch.Action]bool)
		for _, a := range filterActions {
			s.allowedActions[dispatch.Action(strings.ToLower(strings.TrimSpace(a)))] = true
		}
	}
	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	if r, ok := v.(dispatch.Result); ok && len(s.allowedActions) > 0 && !s.allowedActions[r.Action] {
		return nil
	}

	switch s.format {
	case formatJSON, formatNDJSON:
		return s.enc.write(v)
	case "text":
		var err error
		switch t := v.(type) {
		case dispatch.Result:
			err = s.printResult(t)
		case Event:
			if t.Type != EventRunFinished {
				return nil
			}
			err = s.printSummary(t)
		default:
			return nil
		}
		if err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) printResult(r dispatch.Result) error {
	tag := "[" + strings.ToUpper(string(r.Action)) + "]"
	if c, ok := actionColors[r.Action]; ok {
		tag = c.Sprint(tag)
	}
	line := fmt.Sprintf("%s %s", tag, r.Test)
	if r.Package != "" {
		line = fmt.Sprintf("%s %s: %s", tag, r.Package, r.Test)
	}
	if r.ID != "" {
		line += " -> " + r.ID
	}
	if r.Message != "" {
		line += " - " + r.Message
	}
	_, err := fmt.Fprintln(s.writer, line)
	return err
}

func (s *ConsoleSink) printSummary(e Event) error {
	var parts []string
	if e.Tests != nil {
		parts = append(parts, fmt.Sprintf("tests: %d passed, %d failed, %d skipped, %d unknown",
			e.Tests.Passed, e.Tests.Failed, e.Tests.Skipped, e.Tests.Unknown))
		if e.Tests.FailedPackages > 0 {
			parts[len(parts)-1] += fmt.Sprintf(", %d package(s) failed", e.Tests.FailedPackages)
		}
	}
	if e.Sync != nil {
		parts = append(parts, fmt.Sprintf("sync: %d created, %d updated, %d unchanged, %d skipped, %d failed",
			e.Sync.Created, e.Sync.Updated, e.Sync.Unchanged, e.Sync.Skipped, e.Sync.Failed))
	}
	if len(parts) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(s.writer, strings.Join(parts, " | "))
	return err
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case formatJSON, formatNDJSON:
		return s.enc.finish()
	case "text":
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

// nonNil makes empty aggregates encode as [] rather than null.
func nonNil(results []dispatch.Result) []dispatch.Result {
	if results == nil {
		return []dispatch.Result{}
	}
	return results
}
