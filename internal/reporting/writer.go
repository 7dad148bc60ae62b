package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ResultsWriter persists finished test cases.
type ResultsWriter interface {
	Write(result TestResult) error
}

// DirWriter writes Allure results into a directory, one file per test case.
type DirWriter struct {
	dir string
}

func NewDirWriter(dir string) (*DirWriter, error) {
	if dir == "" {
		return nil, fmt.Errorf("results directory required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &DirWriter{dir: dir}, nil
}

func (w *DirWriter) Write(result TestResult) error {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result %s: %w", result.UUID, err)
	}
	path := filepath.Join(w.dir, result.UUID+"-result.json")
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("write result %s: %w", result.UUID, err)
	}
	return nil
}

// Dir returns the directory results are written to.
func (w *DirWriter) Dir() string {
	return w.dir
}

type discardWriter struct{}

func (discardWriter) Write(TestResult) error { return nil }

// Discard drops results; flushing still evicts them from memory.
var Discard ResultsWriter = discardWriter{}
