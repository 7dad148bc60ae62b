package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"tmssync/internal/capture"
	"tmssync/internal/config"
	"tmssync/internal/dispatch"
	"tmssync/internal/output"
	"tmssync/internal/reporting"
	"tmssync/internal/runner"
	"tmssync/internal/tms"
)

// Exit codes.
const (
	ExitOK           = 0
	ExitTestFailures = 1
	ExitFatal        = 3
)

func exitCodeForRun(fatal bool, tests runner.Summary, sourceErr error) int {
	// 0 = every test passed (or was skipped)
	// 1 = failed or unknown tests, or a stream could not be read completely
	// 3 = fatal error (nothing ran)
	// Sync results never change the code.
	if fatal {
		return ExitFatal
	}
	if sourceErr != nil && tests.Total() == 0 {
		return ExitFatal
	}
	if sourceErr != nil || !tests.OK() {
		return ExitTestFailures
	}
	return ExitOK
}

func setupOutputManager(cfg *config.Config, stdout io.Writer) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(stdout, cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterActions...)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Report Sink
	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

func resultsWriter(cfg *config.Config) (reporting.ResultsWriter, error) {
	if cfg.Report.ResultsDir == "" {
		return reporting.Discard, nil
	}
	return reporting.NewDirWriter(cfg.Report.ResultsDir)
}

// Engine runs tests and syncs the passing ones to the configured TMS.
type Engine struct {
	Stdout io.Writer
	Stderr io.Writer
	// Stdin backs the "-" replay input.
	Stdin io.Reader
}

func NewEngine() *Engine {
	return &Engine{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Stdin:  os.Stdin,
	}
}

// pipeline is everything one run wires together.
type pipeline struct {
	launcher   *runner.Launcher
	dispatcher *dispatch.Dispatcher
	lifecycle  *reporting.Lifecycle
}

func newPipeline(cfg *config.Config, results reporting.ResultsWriter, reconciler dispatch.Reconciler, out dispatch.Writer, warn, verbose io.Writer) *pipeline {
	lifecycle := reporting.NewLifecycle(results)
	registry := capture.NewRegistry()
	extractor := capture.NewExtractor(capture.LifecycleSource{Lifecycle: lifecycle}, registry, verbose)

	dispatcher := dispatch.New(reconciler,
		dispatch.WithOutput(out),
		dispatch.WithWarnings(warn),
		dispatch.WithConcurrency(cfg.Runtime.SyncConcurrency),
		dispatch.WithTimeout(cfg.Runtime.SyncTimeout),
	)

	launcher := runner.NewLauncher(
		runner.WithRecorder(reporting.NewRecorder(lifecycle)),
		runner.WithConcurrency(cfg.Runtime.Concurrency),
		runner.WithWarnings(warn),
	)
	launcher.Register(capture.NewObserver(extractor, registry, dispatcher, warn))

	return &pipeline{
		launcher:   launcher,
		dispatcher: dispatcher,
		lifecycle:  lifecycle,
	}
}

func (e *Engine) stderr() io.Writer {
	if e.Stderr == nil {
		return io.Discard
	}
	return e.Stderr
}

func (e *Engine) stdout() io.Writer {
	if e.Stdout == nil {
		return io.Discard
	}
	return e.Stdout
}

// Run executes one run and returns the process exit code. cfg must be validated.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	stderr := e.stderr()
	var verbose io.Writer
	if cfg.Runtime.Verbose {
		verbose = stderr
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	sources := e.buildSources(cfg)
	if len(sources) == 0 {
		fmt.Fprintln(stderr, "Error: nothing to run")
		return exitCodeForRun(true, runner.Summary{}, nil)
	}

	outMgr, err := setupOutputManager(cfg, e.stdout())
	if err != nil {
		fmt.Fprintf(stderr, "Error creating output sinks: %v\n", err)
		return exitCodeForRun(true, runner.Summary{}, nil)
	}
	defer func() {
		if err := outMgr.Close(); err != nil {
			fmt.Fprintf(stderr, "Warning: closing output: %v\n", err)
		}
	}()

	results, err := resultsWriter(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCodeForRun(true, runner.Summary{}, nil)
	}

	client, err := tms.Open(ctx, cfg.TMS, tms.Options{Verbose: cfg.Runtime.Verbose, Log: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCodeForRun(true, runner.Summary{}, nil)
	}
	defer func() {
		if err := tms.Close(client); err != nil {
			fmt.Fprintf(stderr, "Warning: closing %s backend: %v\n", cfg.TMS.Backend, err)
		}
	}()

	var reconciler dispatch.Reconciler
	if client != nil {
		reconciler = tms.NewReconciler(client)
	}

	p := newPipeline(cfg, results, reconciler, outMgr, stderr, verbose)

	if !cfg.Output.NoConsole && cfg.Output.ConsoleFormat == "text" {
		fmt.Fprintf(stderr, "Running %d test stream(s), TMS backend: %s\n", len(sources), cfg.TMS.Backend)
	}
	_ = outMgr.Write(output.Event{
		Type:    output.EventRunStarted,
		Backend: cfg.TMS.Backend,
		Sources: len(sources),
		Command: buildReproducibilityCommand(cfg),
	})

	summary, runErr := p.launcher.Run(ctx, sources)
	if runErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", runErr)
	}
	if n := p.lifecycle.InFlight(); n > 0 {
		fmt.Fprintf(stderr, "Warning: %d test case(s) were never written\n", n)
	}

	code := exitCodeForRun(false, summary, runErr)
	synced := p.dispatcher.Summary()
	_ = outMgr.Write(output.Event{
		Type:     output.EventRunFinished,
		Tests:    &summary,
		Sync:     &synced,
		ExitCode: code,
	})
	return code
}

func (e *Engine) buildSources(cfg *config.Config) []runner.Source {
	var sources []runner.Source
	if len(cfg.Run.Inputs) > 0 {
		for _, in := range cfg.Run.Inputs {
			sources = append(sources, runner.FileSource{Path: in, Stdin: e.Stdin})
		}
		return sources
	}

	packages := cfg.Run.Packages
	if len(packages) == 0 {
		packages = []string{runner.AllPackagesPattern}
	}
	var toolchainErr io.Writer
	if !cfg.Output.NoConsole {
		toolchainErr = e.stderr()
	}
	for _, pkg := range packages {
		sources = append(sources, runner.GoTestSource{
			GoBinary: cfg.Run.GoBinary,
			Package:  pkg,
			Args:     cfg.Run.GoTestArgs,
			Dir:      cfg.Run.Dir,
			Stderr:   toolchainErr,
		})
	}
	return sources
}
