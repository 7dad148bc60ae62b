package tms

import (
	"regexp"
	"strings"
)

// go test appends "#NN" to repeated subtest names.
var dedupeSuffix = regexp.MustCompile(`#\d{2,}$`)

// NormalizeName turns a go test name into the name of its TMS test case.
//
// Every occurrence of a parameterized subtest maps to the same case, so the "#NN"
// suffixes go test adds for duplicate names are dropped. Subtest segments have their
// spaces rewritten to underscores by go test; they are turned back into spaces. The
// top-level test name is kept as is.
//
//	TestLogin/valid_user#01 -> TestLogin/valid user
func NormalizeName(name string) string {
	segments := strings.Split(strings.TrimSpace(name), "/")
	for i, seg := range segments {
		if trimmed := dedupeSuffix.ReplaceAllString(seg, ""); trimmed != "" {
			seg = trimmed
		}
		if i > 0 {
			seg = strings.ReplaceAll(seg, "_", " ")
		}
		segments[i] = strings.TrimSpace(seg)
	}
	return strings.Join(segments, "/")
}
