package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Source produces one test2json stream.
type Source interface {
	Name() string
	// Run writes the stream to w and returns when it is complete.
	Run(ctx context.Context, w io.Writer) error
}

// GoTestSource runs `go test -json` for a single package pattern.
type GoTestSource struct {
	GoBinary string
	Package  string
	// Args are extra arguments placed before the package (e.g. -run, -tags).
	Args []string
	Dir  string
	// Stderr receives the toolchain's stderr. Nil discards it.
	Stderr io.Writer
}

func (s GoTestSource) Name() string {
	return s.Package
}

func (s GoTestSource) Run(ctx context.Context, w io.Writer) error {
	bin := s.GoBinary
	if bin == "" {
		bin = DefaultGoBinary
	}
	pkg := s.Package
	if pkg == "" {
		pkg = AllPackagesPattern
	}

	args := []string{TestCommand, JSONFlag, CountFlag, DisableCacheCount}
	args = append(args, s.Args...)
	args = append(args, pkg)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = s.Dir
	cmd.Stdout = w
	cmd.Stderr = s.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = io.Discard
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	// go test exits non-zero when tests fail; verdicts are read from the stream.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return fmt.Errorf("run %s %s: %w", bin, TestCommand, err)
}

// FileSource replays a recorded test2json stream. Path "-" reads from Stdin.
type FileSource struct {
	Path  string
	Stdin io.Reader
}

func (s FileSource) Name() string {
	if s.Path == StdinPath {
		return "stdin"
	}
	return s.Path
}

func (s FileSource) Run(ctx context.Context, w io.Writer) error {
	if s.Path == StdinPath {
		in := s.Stdin
		if in == nil {
			in = os.Stdin
		}
		_, err := io.Copy(w, in)
		return err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("read event stream %s: %w", s.Path, err)
	}
	return nil
}
