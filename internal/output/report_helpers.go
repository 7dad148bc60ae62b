package output

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"tmssync/internal/dispatch"
)

var (
	httpStatus = regexp.MustCompile(`\b([45]\d\d)\b`)
	// `update "TestA" (#7): ...` -> `update: ...`
	casePrefix = regexp.MustCompile(`^(\w+) "[^"]*"(?: \([^)]*\))?: `)
)

// normalizeErrorReason groups sync errors that differ only in the test they concern.
func normalizeErrorReason(errText string) string {
	s := strings.Join(strings.Fields(errText), " ")

	// The test is listed next to the reason.
	s = casePrefix.ReplaceAllString(s, "$1: ")

	switch {
	case strings.Contains(s, "context deadline exceeded"):
		return "timed out (see --sync-timeout)"
	case strings.Contains(s, "context canceled"):
		return "canceled"
	case strings.Contains(s, "rate limit"):
		return "GitHub API rate limit exceeded"
	}
	if m := httpStatus.FindStringSubmatch(s); m != nil && strings.Contains(s, "github.com") {
		// go-github errors embed the request URL; keep the status only.
		op, _, _ := strings.Cut(s, ":")
		return fmt.Sprintf("%s: HTTP %s", op, m[1])
	}

	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}

type packageStats struct {
	Package   string
	Created   int
	Updated   int
	Unchanged int
	Skipped   int
	Errors    int
}

func (p *packageStats) add(r dispatch.Result) {
	switch r.Action {
	case dispatch.ActionCreated:
		p.Created++
	case dispatch.ActionUpdated:
		p.Updated++
	case dispatch.ActionUnchanged:
		p.Unchanged++
	case dispatch.ActionError:
		p.Errors++
	default:
		p.Skipped++
	}
}

func computePackageStats(results []dispatch.Result) []*packageStats {
	byPkg := make(map[string]*packageStats)
	for _, r := range results {
		pkg := r.Package
		if pkg == "" {
			pkg = "(unknown package)"
		}
		ps, ok := byPkg[pkg]
		if !ok {
			ps = &packageStats{Package: pkg}
			byPkg[pkg] = ps
		}
		ps.add(r)
	}

	out := make([]*packageStats, 0, len(byPkg))
	for _, ps := range byPkg {
		out = append(out, ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Errors != out[j].Errors {
			return out[i].Errors > out[j].Errors
		}
		return out[i].Package < out[j].Package
	})
	return out
}

// groupBy maps key(r) to the sorted test names of the results selected by keep.
func groupBy(results []dispatch.Result, keep func(dispatch.Result) bool, key func(dispatch.Result) string) (map[string][]string, []string) {
	groups := make(map[string][]string)
	for _, r := range results {
		if !keep(r) {
			continue
		}
		k := key(r)
		groups[k] = append(groups[k], qualifiedName(r))
	}
	keys := make([]string, 0, len(groups))
	for k, names := range groups {
		sort.Strings(names)
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return groups, keys
}

func qualifiedName(r dispatch.Result) string {
	if r.Package == "" {
		return r.Test
	}
	return r.Package + "." + r.Test
}

func formatTestList(tests []string, max int) string {
	if len(tests) == 0 {
		return ""
	}
	noun := "tests"
	if len(tests) == 1 {
		noun = "test"
	}
	if len(tests) <= max {
		return fmt.Sprintf("%d %s (%s)", len(tests), noun, strings.Join(tests, ", "))
	}
	return fmt.Sprintf("%d %s (%s, +%d more)", len(tests), noun, strings.Join(tests[:max], ", "), len(tests)-max)
}
