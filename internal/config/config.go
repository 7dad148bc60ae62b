package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// TMS backend names accepted by --tms-backend.
const (
	BackendGitHub = "github"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep the CLI flags in
	// internal/cli/run.go and the flag names in internal/flags in sync.
	Run     Run
	Report  Report
	TMS     TMS
	Output  Output
	Runtime Runtime
}

type Run struct {
	// Packages are the package patterns passed to go test (positional args of `run`).
	// Each pattern is run as its own go test invocation.
	Packages []string

	// Inputs are recorded test2json streams replayed instead of running go test
	// (positional args of `replay`). "-" reads stdin.
	Inputs []string

	// GoBinary is the go toolchain to invoke (see --go).
	GoBinary string

	// GoTestArgs are extra arguments for go test, e.g. -run or -tags (see --go-test-arg).
	// Values are taken verbatim (no comma splitting, so -tags=a,b survives).
	GoTestArgs []string

	// Dir is the working directory for go test (see --dir).
	Dir string
}

type Report struct {
	// ResultsDir receives one Allure `<uuid>-result.json` per test case (see --results-dir).
	// Empty disables writing results.
	ResultsDir string
}

type TMS struct {
	// Backend selects the test management system (see --tms-backend).
	// Allowed values: github, file, sqlite, none.
	Backend string

	// Repo is the OWNER/REPO holding test case issues for the github backend (see --tms-repo).
	Repo string

	// Label marks issues that are test cases for the github backend (see --tms-label).
	Label string

	// BaseURL points the github backend at a GitHub Enterprise API (see --tms-base-url).
	BaseURL string

	// File is the YAML catalog path for the file backend (see --tms-file).
	File string

	// Database is the SQLite catalog path for the sqlite backend (see --tms-db).
	Database string

	// DryRun looks cases up but never creates or updates them (see --dry-run).
	DryRun bool
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// Report writes a Markdown summary to this path (see --report).
	Report string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool

	// ConsoleFilterActions limits console sync results to these actions
	// (see --console-filter-action). Empty shows all.
	// Allowed values: created, updated, unchanged, skipped, error.
	ConsoleFilterActions []string
}

type Runtime struct {
	// Concurrency controls how many go test invocations or replayed streams run at once
	// (see --concurrency). Must be >= 1.
	Concurrency int

	// SyncConcurrency bounds concurrent TMS reconciliations (see --sync-concurrency).
	// Must be >= 1.
	SyncConcurrency int

	// Timeout bounds running the tests (see --timeout). Must be > 0.
	Timeout time.Duration

	// SyncTimeout bounds the TMS sync at the end of the run (see --sync-timeout). It
	// starts when the tests finished, so slow tests never eat into it. Must be > 0.
	SyncTimeout time.Duration

	// Verbose enables diagnostics (capture misses, every GitHub API call).
	Verbose bool
}

func New() *Config {
	return &Config{
		Run: Run{
			GoBinary: "go",
		},
		Report: Report{
			ResultsDir: "allure-results",
		},
		TMS: TMS{
			Backend: BackendNone,
			Label:   "test-case",
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency:     1,
			SyncConcurrency: 4,
			Timeout:         30 * time.Minute,
			SyncTimeout:     5 * time.Minute,
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Output.Emit = splitCommaList(c.Output.Emit)
	c.Output.ConsoleFilterActions = splitCommaList(c.Output.ConsoleFilterActions)

	if len(c.Run.Packages) > 0 && len(c.Run.Inputs) > 0 {
		return errors.New("packages and replay inputs are mutually exclusive")
	}
	if strings.TrimSpace(c.Run.GoBinary) == "" {
		return errors.New("--go must not be empty")
	}
	stdinInputs := 0
	for _, in := range c.Run.Inputs {
		if in == "-" {
			stdinInputs++
		}
	}
	if stdinInputs > 1 {
		return errors.New("stdin (-) can only be replayed once")
	}

	if err := c.validateTMS(); err != nil {
		return err
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for i, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", emit)
		}
		c.Output.Emit[i] = v
	}

	for i, a := range c.Output.ConsoleFilterActions {
		v := normalizeEnumValue(a)
		switch v {
		case "created", "updated", "unchanged", "skipped", "error":
		default:
			return fmt.Errorf("unsupported --console-filter-action value: %s (must be one of: created, updated, unchanged, skipped, error)", a)
		}
		c.Output.ConsoleFilterActions[i] = v
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.SyncConcurrency <= 0 {
		return errors.New("--sync-concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Runtime.SyncTimeout <= 0 {
		return errors.New("--sync-timeout must be > 0")
	}

	return nil
}

func (c *Config) validateTMS() error {
	c.TMS.Backend = normalizeEnumValue(c.TMS.Backend)
	if c.TMS.Backend == "" {
		c.TMS.Backend = BackendNone
	}

	switch c.TMS.Backend {
	case BackendNone:
		return nil
	case BackendGitHub:
		repo, err := normalizeRepoSelector(c.TMS.Repo)
		if err != nil {
			return fmt.Errorf("invalid --tms-repo value: %w", err)
		}
		if repo == "" {
			return errors.New("--tms-repo is required for the github backend")
		}
		c.TMS.Repo = repo
		c.TMS.Label = strings.TrimSpace(c.TMS.Label)
		if c.TMS.Label == "" {
			return errors.New("--tms-label must not be empty for the github backend")
		}
		if c.TMS.BaseURL != "" {
			u, err := url.Parse(c.TMS.BaseURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("invalid --tms-base-url value: %q", c.TMS.BaseURL)
			}
		}
	case BackendFile:
		if strings.TrimSpace(c.TMS.File) == "" {
			return errors.New("--tms-file is required for the file backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.TMS.Database) == "" {
			return errors.New("--tms-db is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unsupported --tms-backend: %s (must be one of: github, file, sqlite, none)", c.TMS.Backend)
	}
	return nil
}

// SplitRepo splits a normalized OWNER/REPO value.
func SplitRepo(repo string) (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeRepoSelector(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	// Accept OWNER/REPO, or a GitHub URL like:
	//   https://github.com/<owner>/<repo>
	//   github.com/<owner>/<repo>.git
	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%q", raw)
		}
		parts := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
		if len(parts) < 2 {
			return "", fmt.Errorf("%q", raw)
		}
		raw = parts[0] + "/" + strings.TrimSuffix(parts[1], ".git")
	}

	if _, _, ok := SplitRepo(raw); !ok {
		return "", fmt.Errorf("%q", raw)
	}
	return raw, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
