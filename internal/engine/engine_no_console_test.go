package engine

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"tmssync/internal/config"
)

func TestEngine_Run_NoConsole(t *testing.T) {
	stream := scenarioStream(t, t.TempDir())

	cfg := config.New()
	cfg.Run.Inputs = []string{stream}
	cfg.Report.ResultsDir = ""
	cfg.Output.NoConsole = true

	var stdout, stderr bytes.Buffer
	eng := &Engine{Stdout: &stdout, Stderr: &stderr}
	// We don't care about the result, just the output
	_ = eng.Run(context.Background(), cfg)

	if out := stdout.String() + stderr.String(); strings.TrimSpace(out) != "" {
		t.Errorf("expected no console output when NoConsole is true; got:\n%s", out)
	}
}

func TestEngine_Run_Console_Default(t *testing.T) {
	dir := t.TempDir()
	stream := scenarioStream(t, dir)

	cfg := config.New()
	cfg.Run.Inputs = []string{stream}
	cfg.Report.ResultsDir = ""
	cfg.TMS.Backend = config.BackendFile
	cfg.TMS.File = filepath.Join(dir, "cases.yaml")

	var stdout, stderr bytes.Buffer
	eng := &Engine{Stdout: &stdout, Stderr: &stderr}
	_ = eng.Run(context.Background(), cfg)

	out := stdout.String()
	for _, want := range []string{"[CREATED]", "example.com/shop: T1 -> TC-1", "[SKIPPED]", "status FAILED", "tests: 1 passed, 1 failed, 1 skipped, 0 unknown"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected console output to contain %q; got:\n%s", want, out)
		}
	}
	if !strings.Contains(stderr.String(), "Running 1 test stream(s), TMS backend: file") {
		t.Errorf("expected progress line on stderr; got:\n%s", stderr.String())
	}
}

func TestEngine_Run_ConsoleFilter(t *testing.T) {
	dir := t.TempDir()
	stream := scenarioStream(t, dir)

	cfg := config.New()
	cfg.Run.Inputs = []string{stream}
	cfg.Report.ResultsDir = ""
	cfg.Output.ConsoleFilterActions = []string{"skipped"}

	var stdout bytes.Buffer
	eng := &Engine{Stdout: &stdout}
	_ = eng.Run(context.Background(), cfg)

	for _, line := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		if strings.HasPrefix(line, "tests:") {
			continue
		}
		if !strings.Contains(line, "[SKIPPED]") {
			t.Fatalf("filtered console must only show skipped results; got %q", line)
		}
	}
}
