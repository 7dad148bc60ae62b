package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"tmssync/internal/dispatch"
	"tmssync/internal/runner"
)

// ReportSink writes a Markdown summary of the run on Close.
type ReportSink struct {
	path    string
	file    *os.File
	mu      sync.Mutex
	results []dispatch.Result

	started  Event
	finished *Event
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return &ReportSink{path: path, file: f}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case dispatch.Result:
		s.results = append(s.results, t)
	case Event:
		switch t.Type {
		case EventRunStarted:
			s.started = t
		case EventRunFinished:
			s.finished = &t
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.WriteString(s.render()); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func (s *ReportSink) render() string {
	sort.SliceStable(s.results, func(i, j int) bool {
		return qualifiedName(s.results[i]) < qualifiedName(s.results[j])
	})

	var b strings.Builder
	b.WriteString("# tmssync Report\n\n")

	// --- Run ---
	b.WriteString("## Run\n\n")
	backend := s.started.Backend
	if backend == "" {
		backend = "none"
	}
	fmt.Fprintf(&b, "- TMS backend: **%s**\n", backend)
	if s.started.Sources > 0 {
		fmt.Fprintf(&b, "- Test streams: %d\n", s.started.Sources)
	}
	if s.finished != nil {
		var tests runner.Summary
		if s.finished.Tests != nil {
			tests = *s.finished.Tests
		}
		fmt.Fprintf(&b, "- Tests: %d passed, %d failed, %d skipped, %d unknown\n",
			tests.Passed, tests.Failed, tests.Skipped, tests.Unknown)
		fmt.Fprintf(&b, "- Exit code: %d\n", s.finished.ExitCode)
	} else {
		b.WriteString("- The run did not finish.\n")
	}
	b.WriteString("\n")

	// --- Sync summary ---
	var sum dispatch.Summary
	if s.finished != nil && s.finished.Sync != nil {
		sum = *s.finished.Sync
	} else {
		for _, ps := range computePackageStats(s.results) {
			sum.Created += ps.Created
			sum.Updated += ps.Updated
			sum.Unchanged += ps.Unchanged
			sum.Skipped += ps.Skipped
			sum.Failed += ps.Errors
		}
		sum.Considered = len(s.results)
	}
	b.WriteString("## Sync Summary\n\n")
	b.WriteString("| Created | Updated | Unchanged | Skipped | Failed |\n")
	b.WriteString("| ---: | ---: | ---: | ---: | ---: |\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d |\n\n", sum.Created, sum.Updated, sum.Unchanged, sum.Skipped, sum.Failed)

	// --- Per-package ---
	b.WriteString("## Per-package status\n\n")
	stats := computePackageStats(s.results)
	if len(stats) == 0 {
		b.WriteString("No test cases were captured.\n\n")
	} else {
		b.WriteString("| Package | Created | Updated | Unchanged | Skipped | Errors |\n")
		b.WriteString("| --- | ---: | ---: | ---: | ---: | ---: |\n")
		for _, ps := range stats {
			fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %d |\n", ps.Package, ps.Created, ps.Updated, ps.Unchanged, ps.Skipped, ps.Errors)
		}
		b.WriteString("\n")
	}

	// --- Errors ---
	b.WriteString("## Sync errors\n\n")
	errs, reasons := groupBy(s.results,
		func(r dispatch.Result) bool { return r.Action == dispatch.ActionError },
		func(r dispatch.Result) string { return normalizeErrorReason(r.Message) })
	if len(reasons) == 0 {
		b.WriteString("- None\n\n")
	} else {
		for _, reason := range reasons {
			fmt.Fprintf(&b, "- **%s**: %s\n", reason, formatTestList(errs[reason], 5))
		}
		b.WriteString("\n")
	}

	// --- Changes ---
	b.WriteString("## Changed test cases\n\n")
	changed := 0
	for _, r := range s.results {
		if r.Action != dispatch.ActionCreated && r.Action != dispatch.ActionUpdated {
			continue
		}
		changed++
		name := r.Case
		if name == "" {
			name = r.Test
		}
		fmt.Fprintf(&b, "- %s **%s**", r.Action, name)
		if r.ID != "" {
			fmt.Fprintf(&b, " (%s)", r.ID)
		}
		b.WriteString("\n")
	}
	if changed == 0 {
		b.WriteString("- None\n")
	}
	b.WriteString("\n")

	// --- Not synced ---
	b.WriteString("## Not synced\n\n")
	skipped, statuses := groupBy(s.results,
		func(r dispatch.Result) bool { return r.Action == dispatch.ActionSkipped },
		func(r dispatch.Result) string { return string(r.Status) })
	if len(statuses) == 0 {
		b.WriteString("- None\n\n")
	} else {
		for _, st := range statuses {
			fmt.Fprintf(&b, "- **%s**: %s\n", st, formatTestList(skipped[st], 5))
		}
		b.WriteString("\n")
	}

	// --- Reproduce ---
	if s.started.Command != "" {
		b.WriteString("## Reproduce\n\n")
		fmt.Fprintf(&b, "```sh\n%s\n```\n", s.started.Command)
	}

	return b.String()
}
