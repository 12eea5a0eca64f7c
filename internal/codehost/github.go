// internal/codehost/github.go
package codehost

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/fyrsmithlabs/packagebot/internal/config"
	"github.com/fyrsmithlabs/packagebot/internal/plan"
)

const defaultBaseBranch = "main"

// GitHubAdapter opens remediation pull requests through the GitHub API.
type GitHubAdapter struct {
	client *github.Client
	retry  *RetryConfig
}

// NewGitHubAdapter creates an adapter authenticated with the token.
func NewGitHubAdapter(token config.Secret) *GitHubAdapter {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	httpClient := oauth2.NewClient(context.Background(), ts)

	return &GitHubAdapter{
		client: github.NewClient(httpClient),
		retry:  DefaultRetryConfig(),
	}
}

// NewGitHubAdapterWithClient wires a prebuilt client. Used in tests.
func NewGitHubAdapterWithClient(client *github.Client) *GitHubAdapter {
	return &GitHubAdapter{client: client, retry: DefaultRetryConfig()}
}

// OpenRequest opens a pull request for the remediation branch. If an
// open request for the same head branch already exists, its body is
// refreshed and it is returned instead of creating a duplicate.
func (g *GitHubAdapter) OpenRequest(ctx context.Context, req OpenRequest) (*RequestResult, error) {
	if req.Org == "" || req.Repo == "" || req.Branch == "" {
		return nil, fmt.Errorf("org, repo and branch are required")
	}

	base := req.BaseBranch
	if base == "" {
		base = defaultBaseBranch
	}

	title := requestTitle(req.Repository)
	body := requestBody(req)

	if existing, err := g.findOpen(ctx, req); err != nil {
		return nil, err
	} else if existing != nil {
		err := g.UpdateRequest(ctx, UpdateRequest{
			Org:    req.Org,
			Repo:   req.Repo,
			Number: existing.GetNumber(),
			Title:  title,
			Body:   body,
		})
		if err != nil {
			return nil, err
		}
		return &RequestResult{URL: existing.GetHTMLURL(), Number: existing.GetNumber()}, nil
	}

	var pr *github.PullRequest
	_, err := retryOperation(ctx, g.retry, func() (*github.Response, error) {
		var resp *github.Response
		var opErr error
		pr, resp, opErr = g.client.PullRequests.Create(ctx, req.Org, req.Repo, &github.NewPullRequest{
			Title: github.String(title),
			Head:  github.String(req.Branch),
			Base:  github.String(base),
			Body:  github.String(body),
		})
		return resp, opErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pull request for %s/%s: %w", req.Org, req.Repo, err)
	}

	return &RequestResult{URL: pr.GetHTMLURL(), Number: pr.GetNumber()}, nil
}

// UpdateRequest edits title and body of an existing pull request.
func (g *GitHubAdapter) UpdateRequest(ctx context.Context, req UpdateRequest) error {
	update := &github.PullRequest{}
	if req.Title != "" {
		update.Title = github.String(req.Title)
	}
	if req.Body != "" {
		update.Body = github.String(req.Body)
	}

	_, err := retryOperation(ctx, g.retry, func() (*github.Response, error) {
		_, resp, opErr := g.client.PullRequests.Edit(ctx, req.Org, req.Repo, req.Number, update)
		return resp, opErr
	})
	if err != nil {
		return fmt.Errorf("failed to update pull request %s/%s#%d: %w", req.Org, req.Repo, req.Number, err)
	}
	return nil
}

// findOpen looks for an existing open request with the same head branch.
func (g *GitHubAdapter) findOpen(ctx context.Context, req OpenRequest) (*github.PullRequest, error) {
	var prs []*github.PullRequest
	_, err := retryOperation(ctx, g.retry, func() (*github.Response, error) {
		var resp *github.Response
		var opErr error
		prs, resp, opErr = g.client.PullRequests.List(ctx, req.Org, req.Repo, &github.PullRequestListOptions{
			State: "open",
			Head:  fmt.Sprintf("%s:%s", req.Org, req.Branch),
		})
		return resp, opErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests for %s/%s: %w", req.Org, req.Repo, err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return prs[0], nil
}

func requestTitle(repo plan.RepositoryPlan) string {
	n := len(repo.SecurityAlerts)
	switch n {
	case 0:
		return "chore(deps): security updates"
	case 1:
		return fmt.Sprintf("chore(deps): fix security alert for %s", repo.SecurityAlerts[0].Package)
	default:
		return fmt.Sprintf("chore(deps): fix %d security alerts", n)
	}
}

func requestBody(req OpenRequest) string {
	var sb strings.Builder

	sb.WriteString("Automated security remediation")
	if req.IdempotencyKey != "" {
		fmt.Fprintf(&sb, " (`%s`)", req.IdempotencyKey)
	}
	sb.WriteString(".\n\n")

	if len(req.Repository.SecurityAlerts) > 0 {
		sb.WriteString("| Package | Ecosystem | Severity | Target | Advisories |\n")
		sb.WriteString("| --- | --- | --- | --- | --- |\n")
		for _, pkg := range req.Repository.SecurityAlerts {
			advisories := strings.Join(append(append([]string{}, pkg.CVEs...), pkg.GHSAs...), ", ")
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
				pkg.Package, pkg.Ecosystem, pkg.Severity, pkg.TargetVersion, advisories)
		}
		sb.WriteString("\n")
	}

	if len(req.MajorVersionUpdates) > 0 {
		sb.WriteString("**Major version updates, review carefully:**\n")
		for _, u := range req.MajorVersionUpdates {
			fmt.Fprintf(&sb, "- %s\n", u)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Review the changes and the linked advisories before merging.\n")
	return sb.String()
}
