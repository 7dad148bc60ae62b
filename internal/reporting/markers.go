package reporting

import (
	"regexp"
	"strings"
)

// Tests describe themselves through log lines, e.g.
//
//	t.Log("DESCRIPTION: user can log in")
//	t.Log("STEP: open login page")
//
// go test prefixes logged lines with "file_test.go:NN: ", which is ignored.
const (
	StepMarker        = "STEP:"
	DescriptionMarker = "DESCRIPTION:"
)

type markerKind int

const (
	markerNone markerKind = iota
	markerStep
	markerDescription
)

var sourcePrefix = regexp.MustCompile(`^[\w./-]+\.go:\d+: `)

func parseMarker(line string) (markerKind, string) {
	text := strings.TrimSpace(line)
	text = sourcePrefix.ReplaceAllString(text, "")

	switch {
	case strings.HasPrefix(text, StepMarker):
		if v := strings.TrimSpace(strings.TrimPrefix(text, StepMarker)); v != "" {
			return markerStep, v
		}
	case strings.HasPrefix(text, DescriptionMarker):
		if v := strings.TrimSpace(strings.TrimPrefix(text, DescriptionMarker)); v != "" {
			return markerDescription, v
		}
	}
	return markerNone, ""
}

func isPanicLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "panic:")
}

// isFrameworkLine reports lines printed by the testing package itself rather than by
// the test.
func isFrameworkLine(line string) bool {
	text := strings.TrimSpace(line)
	for _, prefix := range []string{"=== ", "--- ", "PASS", "FAIL", "ok "} {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return text == ""
}
