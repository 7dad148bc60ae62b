package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"tmssync/internal/dispatch"
	"tmssync/internal/runner"
)

func TestMarkdownReportContract(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "tmssync-report.md")

	s, err := NewReportSink(reportPath)
	if err != nil {
		t.Fatalf("NewReportSink failed: %v", err)
	}

	_ = s.Write(Event{Type: EventRunStarted, Backend: "github", Sources: 2, Command: "tmssync run --tms-backend github --tms-repo acme/qa ./..."})
	_ = s.Write(dispatch.Result{Package: "acme/app", Test: "TestLogin", Case: "TestLogin", Status: "PASSED", Action: dispatch.ActionCreated, ID: "#12"})
	_ = s.Write(dispatch.Result{Package: "acme/app", Test: "TestLogout", Case: "TestLogout", Status: "PASSED", Action: dispatch.ActionUpdated, ID: "#3"})
	_ = s.Write(dispatch.Result{Package: "acme/app", Test: "TestCart", Status: "PASSED", Action: dispatch.ActionUnchanged, ID: "#4"})
	_ = s.Write(dispatch.Result{Package: "acme/api", Test: "TestA", Status: "PASSED", Action: dispatch.ActionError, Message: `find "TestA": context deadline exceeded`})
	_ = s.Write(dispatch.Result{Package: "acme/api", Test: "TestB", Status: "PASSED", Action: dispatch.ActionError, Message: `find "TestB": context deadline exceeded`})
	_ = s.Write(dispatch.Result{Package: "acme/api", Test: "TestC", Status: "FAILED", Action: dispatch.ActionSkipped, Message: "status FAILED"})
	_ = s.Write(Event{
		Type:     EventRunFinished,
		ExitCode: 1,
		Tests:    &runner.Summary{Passed: 5, Failed: 1},
		Sync:     &dispatch.Summary{Considered: 6, Created: 1, Updated: 1, Unchanged: 1, Skipped: 1, Failed: 2},
	})

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	out := string(b)

	required := []string{
		"# tmssync Report",
		"## Run",
		"- TMS backend: **github**",
		"- Test streams: 2",
		"- Tests: 5 passed, 1 failed, 0 skipped, 0 unknown",
		"- Exit code: 1",
		"## Sync Summary",
		"| 1 | 1 | 1 | 1 | 2 |",
		"## Per-package status",
		"| acme/api | 0 | 0 | 0 | 1 | 2 |",
		"| acme/app | 1 | 1 | 1 | 0 | 0 |",
		"## Sync errors",
		"- **timed out (see --sync-timeout)**: 2 tests (acme/api.TestA, acme/api.TestB)",
		"## Changed test cases",
		"- created **TestLogin** (#12)",
		"- updated **TestLogout** (#3)",
		"## Not synced",
		"- **FAILED**: 1 test (acme/api.TestC)",
		"## Reproduce",
		"tmssync run --tms-backend github --tms-repo acme/qa ./...",
	}
	for _, want := range required {
		if !strings.Contains(out, want) {
			t.Fatalf("expected report to contain %q; got:\n%s", want, out)
		}
	}
	// Packages with errors are listed first.
	if strings.Index(out, "| acme/api |") > strings.Index(out, "| acme/app |") {
		t.Fatalf("packages with errors must come first:\n%s", out)
	}
}

func TestMarkdownReport_EmptyRun(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "report.md")
	s, err := NewReportSink(reportPath)
	if err != nil {
		t.Fatalf("NewReportSink failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	b, _ := os.ReadFile(reportPath)
	out := string(b)
	for _, want := range []string{"- TMS backend: **none**", "- The run did not finish.", "No test cases were captured.", "## Sync errors\n\n- None"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "## Reproduce") {
		t.Fatalf("no command, no reproduce section")
	}
}

func TestNormalizeErrorReason(t *testing.T) {
	tests := []struct{ in, want string }{
		{`create "TestA": boom`, "create: boom"},
		{`update "TestA" (#7): edit issue acme/qa#7: PATCH https://api.github.com/repos/acme/qa/issues/7: 502 Bad Gateway []`, "update: HTTP 502"},
		{`find "TestA": list issues of acme/qa: context canceled`, "canceled"},
		{"  spaced \n  out  ", "spaced out"},
		{strings.Repeat("x", 200), strings.Repeat("x", 117) + "..."},
	}
	for _, tt := range tests {
		if got := normalizeErrorReason(tt.in); got != tt.want {
			t.Errorf("normalizeErrorReason(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
