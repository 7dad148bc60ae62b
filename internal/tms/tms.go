package tms

import (
	"context"
	"errors"
	"slices"
	"strings"
)

// ErrNotFound is returned by Client.FindByName when no test case has the name.
var ErrNotFound = errors.New("test case not found")

// Case is the content a test run contributes to a test case.
type Case struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []string `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Entity is a test case as stored by a TMS.
type Entity struct {
	ID   string `json:"id" yaml:"id"`
	Case `yaml:",inline"`
}

// Client is the minimal contract a test management system must satisfy.
//
// Implementations must be safe for concurrent use.
type Client interface {
	FindByName(ctx context.Context, name string) (*Entity, error)
	Create(ctx context.Context, c Case) (*Entity, error)
	Update(ctx context.Context, e Entity, c Case) error
}

type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
)

// Equal reports whether two cases carry the same content, ignoring surrounding
// whitespace. Names are not compared; callers look entities up by name.
func Equal(a, b Case) bool {
	if strings.TrimSpace(a.Description) != strings.TrimSpace(b.Description) {
		return false
	}
	return slices.Equal(trimAll(a.Steps), trimAll(b.Steps))
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
