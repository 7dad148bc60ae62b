// Package issues stores test cases as labelled GitHub issues.
package issues

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"tmssync/internal/config"
	gh "tmssync/internal/github"
	"tmssync/internal/tms"

	"github.com/google/go-github/v81/github"
)

const pageSize = 100

func init() {
	tms.Register(tms.Backend{
		Name:        config.BackendGitHub,
		Description: "One GitHub issue per test case in --tms-repo, labelled --tms-label.",
		New:         open,
	})
}

func open(ctx context.Context, cfg config.TMS, opts tms.Options) (tms.Client, error) {
	owner, repo, ok := config.SplitRepo(cfg.Repo)
	if !ok {
		return nil, fmt.Errorf("invalid repository %q (expected OWNER/REPO)", cfg.Repo)
	}
	token, _, err := gh.ResolveAuthToken(ctx, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("resolve GitHub token: %w", err)
	}
	if token == "" {
		return nil, errors.New("no GitHub token: set GITHUB_TOKEN or run `gh auth login`")
	}
	client, err := gh.NewClient(ctx, token, gh.WithVerbose(opts.Verbose, opts.Log), gh.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, err
	}
	return New(client.Client, owner, repo, cfg.Label), nil
}

// Client is a tms.Client backed by the issues of one repository.
//
// All open and closed issues carrying the label are indexed by title on first use;
// the index is kept current by Create and Update, so a run never lists twice.
type Client struct {
	gh    *github.Client
	owner string
	repo  string
	label string

	mu     sync.Mutex
	loaded bool
	index  map[string]*tms.Entity
}

var _ tms.Client = (*Client)(nil)

func New(client *github.Client, owner, repo, label string) *Client {
	return &Client{gh: client, owner: owner, repo: repo, label: label}
}

func (c *Client) FindByName(ctx context.Context, name string) (*tms.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(ctx); err != nil {
		return nil, err
	}
	e, ok := c.index[name]
	if !ok {
		return nil, tms.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (c *Client) Create(ctx context.Context, tc tms.Case) (*tms.Entity, error) {
	issue, _, err := c.gh.Issues.Create(ctx, c.owner, c.repo, &github.IssueRequest{
		Title:  github.Ptr(tc.Name),
		Body:   github.Ptr(RenderBody(tc)),
		Labels: &[]string{c.label},
	})
	if err != nil {
		return nil, fmt.Errorf("create issue in %s/%s: %w", c.owner, c.repo, err)
	}
	e := &tms.Entity{ID: issueID(issue.GetNumber()), Case: tc}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index != nil {
		c.index[tc.Name] = e
	}
	cp := *e
	return &cp, nil
}

func (c *Client) Update(ctx context.Context, e tms.Entity, tc tms.Case) error {
	number, err := parseIssueID(e.ID)
	if err != nil {
		return err
	}
	_, _, err = c.gh.Issues.Edit(ctx, c.owner, c.repo, number, &github.IssueRequest{
		Title: github.Ptr(tc.Name),
		Body:  github.Ptr(RenderBody(tc)),
	})
	if err != nil {
		return fmt.Errorf("edit issue %s/%s#%d: %w", c.owner, c.repo, number, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index != nil {
		c.index[tc.Name] = &tms.Entity{ID: e.ID, Case: tc}
	}
	return nil
}

func (c *Client) loadLocked(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	index := make(map[string]*tms.Entity)
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Labels:      []string{c.label},
		Sort:        "created",
		Direction:   "asc",
		ListOptions: github.ListOptions{PerPage: pageSize},
	}
	for {
		page, resp, err := c.gh.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return fmt.Errorf("repository %s/%s not found or not accessible: %w", c.owner, c.repo, err)
			}
			return fmt.Errorf("list issues of %s/%s: %w", c.owner, c.repo, err)
		}
		for _, issue := range page {
			if issue.IsPullRequest() {
				continue
			}
			title := strings.TrimSpace(issue.GetTitle())
			if _, dup := index[title]; dup {
				// Oldest issue wins.
				continue
			}
			desc, steps := ParseBody(issue.GetBody())
			index[title] = &tms.Entity{
				ID:   issueID(issue.GetNumber()),
				Case: tms.Case{Name: title, Description: desc, Steps: steps},
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	c.index = index
	c.loaded = true
	return nil
}

func issueID(number int) string {
	return "#" + strconv.Itoa(number)
}

func parseIssueID(id string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "#"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid issue id %q", id)
	}
	return n, nil
}
