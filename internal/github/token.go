package github

import (
	"context"
	"errors"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"
)

type AuthTokenSource string

const (
	AuthTokenSourceEnv        AuthTokenSource = "env:GITHUB_TOKEN"
	AuthTokenSourceGHEnv      AuthTokenSource = "env:GH_TOKEN"
	AuthTokenSourceEnterprise AuthTokenSource = "env:GH_ENTERPRISE_TOKEN"
	AuthTokenSourceGitHubCLI  AuthTokenSource = "gh"
)

const defaultHost = "github.com"

// ResolveAuthToken finds a token for the GitHub instance serving baseURL (empty means
// github.com).
//
// Precedence:
//  1. GITHUB_TOKEN
//  2. GH_TOKEN, or GH_ENTERPRISE_TOKEN for an enterprise host
//  3. GitHub CLI: `gh auth token -h <host>`
//
// An empty token with a nil error means no source had one. The token is never logged.
func ResolveAuthToken(ctx context.Context, baseURL string) (token string, source AuthTokenSource, err error) {
	if env := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); env != "" {
		return env, AuthTokenSourceEnv, nil
	}

	host := HostFromBaseURL(baseURL)
	if host == defaultHost {
		if env := strings.TrimSpace(os.Getenv("GH_TOKEN")); env != "" {
			return env, AuthTokenSourceGHEnv, nil
		}
	} else if env := strings.TrimSpace(os.Getenv("GH_ENTERPRISE_TOKEN")); env != "" {
		return env, AuthTokenSourceEnterprise, nil
	}

	tok, ok, err := tokenFromGitHubCLI(ctx, host)
	if err != nil {
		return "", "", err
	}
	if ok {
		return tok, AuthTokenSourceGitHubCLI, nil
	}
	return "", "", nil
}

// HostFromBaseURL returns the host gh knows the instance by.
// "https://ghe.example.com/api/v3/" -> "ghe.example.com"; "" -> "github.com".
func HostFromBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return defaultHost
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return defaultHost
	}
	host := strings.TrimPrefix(u.Hostname(), "api.")
	if host == "" {
		return defaultHost
	}
	return host
}

func tokenFromGitHubCLI(ctx context.Context, host string) (token string, ok bool, err error) {
	if _, lookErr := exec.LookPath("gh"); lookErr != nil {
		return "", false, nil
	}

	// A broken credential helper must not hang the run.
	cmdCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, "gh", "auth", "token", "-h", host)
	env := make([]string, 0, len(os.Environ())+1)
	for _, entry := range os.Environ() {
		if strings.HasPrefix(entry, "GH_PAGER=") {
			continue
		}
		env = append(env, entry)
	}
	cmd.Env = append(env, "GH_PAGER=cat")

	// Only stdout: gh prints login hints on stderr.
	out, runErr := cmd.Output()
	if runErr != nil {
		if cmdCtx.Err() != nil {
			return "", false, cmdCtx.Err()
		}
		// Not logged in to this host.
		return "", false, nil
	}

	tok := strings.TrimSpace(string(out))
	if tok == "" {
		return "", false, nil
	}
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", false, errors.New("invalid token returned by gh: contains whitespace")
	}
	return tok, true, nil
}
