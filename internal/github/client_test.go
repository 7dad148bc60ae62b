package github

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestNewClient_NilContextReturnsError(t *testing.T) {
	var nilCtx context.Context
	_, err := NewClient(nilCtx, "")
	if err == nil || !strings.Contains(err.Error(), "ctx is nil") {
		t.Fatalf("expected ctx is nil error, got %v", err)
	}
}

func TestNewClient_Transport(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		verbose     bool
		wantAuth    string
		wantVerbose bool
	}{
		{name: "anonymous"},
		{name: "token", token: "test-token", wantAuth: "Bearer test-token"},
		{name: "verbose token", token: "test-token", verbose: true, wantAuth: "Bearer test-token", wantVerbose: true},
		{name: "verbose anonymous", verbose: true, wantVerbose: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth, gotPath string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotPath = r.URL.Path
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`[]`))
			}))
			t.Cleanup(server.Close)

			ctx := context.Background()
			var logs bytes.Buffer
			c, err := NewClient(ctx, tt.token, WithBaseURL(server.URL+"/"), WithVerbose(tt.verbose, &logs))
			if err != nil {
				t.Fatalf("NewClient failed: %v", err)
			}
			if _, _, err := c.Client.Issues.ListByRepo(ctx, "acme", "qa", nil); err != nil {
				t.Fatalf("ListByRepo: %v", err)
			}

			if gotPath != "/repos/acme/qa/issues" {
				t.Fatalf("unexpected path %q", gotPath)
			}
			if gotAuth != tt.wantAuth {
				t.Fatalf("Authorization = %q, want %q", gotAuth, tt.wantAuth)
			}
			hasLog := strings.Contains(logs.String(), "[verbose] github api: GET")
			if hasLog != tt.wantVerbose {
				t.Fatalf("verbose log present = %v, want %v; logs=%q", hasLog, tt.wantVerbose, logs.String())
			}
			if tt.wantVerbose && !strings.Contains(logs.String(), "200 OK") {
				t.Fatalf("expected response line in logs, got %q", logs.String())
			}
		})
	}
}

func TestNewClient_WithBaseURL(t *testing.T) {
	c, err := NewClient(context.Background(), "", WithBaseURL("https://ghe.example.com/api/v3"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if got := c.Client.BaseURL.String(); got != "https://ghe.example.com/api/v3/" {
		t.Fatalf("unexpected base url: %s", got)
	}
}

type countingTransport struct{ calls atomic.Int32 }

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return http.DefaultTransport.RoundTrip(req)
}

func TestNewClient_BudgetTracksResponsesThroughCustomTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "42")
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(server.Close)

	ctx := context.Background()
	base := &countingTransport{}
	budget := NewRequestBudget()
	c, err := NewClient(ctx, "", WithBaseURL(server.URL+"/"), WithTransport(base), WithBudget(budget))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	req, err := c.Client.NewRequest("GET", "rate_limit", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if _, err := c.Client.Do(ctx, req, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if c.Budget != budget {
		t.Fatalf("shared budget not used")
	}
	if got := budget.Remaining(); got != 42 {
		t.Fatalf("budget remaining: want 42, got %d", got)
	}
	if base.calls.Load() != 1 {
		t.Fatalf("custom transport calls: want 1, got %d", base.calls.Load())
	}
}
