package github

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// ghStub puts a fake gh on an otherwise empty PATH. The stub echoes its arguments to
// args.txt and prints body.
func ghStub(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test uses a shell script gh stub")
	}
	tmp := t.TempDir()
	script := "#!/bin/sh\necho \"$@\" > " + filepath.Join(tmp, "args.txt") + "\n" + body
	if err := os.WriteFile(filepath.Join(tmp, "gh"), []byte(script), 0o755); err != nil {
		t.Fatalf("WriteFile gh stub failed: %v", err)
	}
	t.Setenv("PATH", tmp)
	return tmp
}

func clearTokenEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GITHUB_TOKEN", "GH_TOKEN", "GH_ENTERPRISE_TOKEN"} {
		t.Setenv(k, "")
	}
}

func TestResolveAuthToken(t *testing.T) {
	t.Run("GITHUB_TOKEN wins", func(t *testing.T) {
		clearTokenEnv(t)
		t.Setenv("GITHUB_TOKEN", " env-token ")
		t.Setenv("GH_TOKEN", "gh-env")
		t.Setenv("PATH", t.TempDir())

		tok, src, err := ResolveAuthToken(context.Background(), "")
		if err != nil {
			t.Fatalf("ResolveAuthToken error: %v", err)
		}
		if tok != "env-token" || src != AuthTokenSourceEnv {
			t.Fatalf("want env-token from %q, got %q from %q", AuthTokenSourceEnv, tok, src)
		}
	})

	t.Run("GH_TOKEN for github.com", func(t *testing.T) {
		clearTokenEnv(t)
		t.Setenv("GH_TOKEN", "gh-env")
		t.Setenv("GH_ENTERPRISE_TOKEN", "ghe-env")
		t.Setenv("PATH", t.TempDir())

		tok, src, err := ResolveAuthToken(context.Background(), "")
		if err != nil {
			t.Fatalf("ResolveAuthToken error: %v", err)
		}
		if tok != "gh-env" || src != AuthTokenSourceGHEnv {
			t.Fatalf("got %q from %q", tok, src)
		}
	})

	t.Run("GH_ENTERPRISE_TOKEN for enterprise hosts", func(t *testing.T) {
		clearTokenEnv(t)
		t.Setenv("GH_TOKEN", "gh-env")
		t.Setenv("GH_ENTERPRISE_TOKEN", "ghe-env")
		t.Setenv("PATH", t.TempDir())

		tok, src, err := ResolveAuthToken(context.Background(), "https://ghe.example.com/api/v3/")
		if err != nil {
			t.Fatalf("ResolveAuthToken error: %v", err)
		}
		if tok != "ghe-env" || src != AuthTokenSourceEnterprise {
			t.Fatalf("got %q from %q", tok, src)
		}
	})

	t.Run("gh token used for the right host", func(t *testing.T) {
		clearTokenEnv(t)
		dir := ghStub(t, "echo gh-token\n")

		tok, src, err := ResolveAuthToken(context.Background(), "https://ghe.example.com/api/v3/")
		if err != nil {
			t.Fatalf("ResolveAuthToken error: %v", err)
		}
		if tok != "gh-token" || src != AuthTokenSourceGitHubCLI {
			t.Fatalf("got %q from %q", tok, src)
		}
		args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
		if err != nil {
			t.Fatalf("read stub args: %v", err)
		}
		if got := string(args); got != "auth token -h ghe.example.com\n" {
			t.Fatalf("unexpected gh args %q", got)
		}
	})

	t.Run("empty when neither env nor gh", func(t *testing.T) {
		clearTokenEnv(t)
		t.Setenv("PATH", t.TempDir())

		tok, src, err := ResolveAuthToken(context.Background(), "")
		if err != nil {
			t.Fatalf("ResolveAuthToken error: %v", err)
		}
		if tok != "" || src != "" {
			t.Fatalf("want nothing, got %q from %q", tok, src)
		}
	})

	t.Run("gh not logged in is not an error", func(t *testing.T) {
		clearTokenEnv(t)
		ghStub(t, "echo 'not logged in' >&2\nexit 1\n")

		tok, _, err := ResolveAuthToken(context.Background(), "")
		if err != nil || tok != "" {
			t.Fatalf("want no token and no error, got %q, %v", tok, err)
		}
	})

	t.Run("gh invalid token output returns error", func(t *testing.T) {
		clearTokenEnv(t)
		ghStub(t, "printf 'line1\\nline2\\n'\n")

		if _, _, err := ResolveAuthToken(context.Background(), ""); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("context canceled propagates error when using gh", func(t *testing.T) {
		clearTokenEnv(t)
		ghStub(t, "echo gh-token\n")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := ResolveAuthToken(ctx, "")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestHostFromBaseURL(t *testing.T) {
	for in, want := range map[string]string{
		"":                                "github.com",
		"https://api.github.com/":         "github.com",
		"https://ghe.example.com/api/v3/": "ghe.example.com",
		"http://localhost:8080":           "localhost",
		"::not a url":                     "github.com",
	} {
		if got := HostFromBaseURL(in); got != want {
			t.Errorf("HostFromBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
