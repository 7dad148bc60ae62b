package issues

import (
	"fmt"
	"regexp"
	"strings"
	"tmssync/internal/tms"
)

const stepsHeading = "## Steps"

var stepLine = regexp.MustCompile(`^\d+\.\s+(.*)$`)

// RenderBody renders the issue body: the description, then a numbered step list.
func RenderBody(c tms.Case) string {
	var b strings.Builder
	if d := strings.TrimSpace(c.Description); d != "" {
		b.WriteString(d)
		b.WriteString("\n\n")
	}
	if len(c.Steps) > 0 {
		b.WriteString(stepsHeading)
		b.WriteString("\n\n")
		for i, s := range c.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(s))
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// ParseBody is the inverse of RenderBody. Text outside the step list that people
// add by hand becomes part of the description.
func ParseBody(body string) (description string, steps []string) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	before, after, found := strings.Cut(body, stepsHeading)
	if !found {
		return strings.TrimSpace(body), nil
	}

	var extra []string
	for _, line := range strings.Split(after, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := stepLine.FindStringSubmatch(line); m != nil {
			steps = append(steps, strings.TrimSpace(m[1]))
			continue
		}
		extra = append(extra, line)
	}
	description = strings.TrimSpace(before)
	if len(extra) > 0 {
		description = strings.TrimSpace(description + "\n\n" + strings.Join(extra, "\n"))
	}
	return description, steps
}
