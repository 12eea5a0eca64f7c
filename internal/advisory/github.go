// internal/advisory/github.go
package advisory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/packagebot/internal/config"
)

const (
	defaultPerPage = 100

	// Secondary rate limit guidance from GitHub is ~1 req/s sustained.
	requestsPerSecond = 1
	requestBurst      = 5
)

// Query selects which alerts to fetch.
type Query struct {
	Org        string   `json:"org"`
	State      string   `json:"state,omitempty"`
	Severities []string `json:"severities,omitempty"`
	PerPage    int      `json:"per_page,omitempty"`
}

// Source fetches the full set of alerts matching a query.
type Source interface {
	Fetch(ctx context.Context, q Query) ([]Alert, error)
}

// GitHubSource fetches Dependabot alerts through the GitHub API,
// following cursor pagination until the listing is exhausted. Transient
// failures are left to the calling activity's retry policy.
type GitHubSource struct {
	client  *github.Client
	limiter *rate.Limiter
}

// NewGitHubSource creates a source authenticated with the given token.
func NewGitHubSource(token config.Secret) *GitHubSource {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = 30 * time.Second

	return newGitHubSource(github.NewClient(httpClient))
}

// NewGitHubSourceWithClient wires a prebuilt client. Used in tests.
func NewGitHubSourceWithClient(client *github.Client) *GitHubSource {
	return newGitHubSource(client)
}

func newGitHubSource(client *github.Client) *GitHubSource {
	return &GitHubSource{
		client:  client,
		limiter: rate.NewLimiter(requestsPerSecond, requestBurst),
	}
}

// Fetch retrieves every alert matching q, across all pages.
func (s *GitHubSource) Fetch(ctx context.Context, q Query) ([]Alert, error) {
	if q.Org == "" {
		return nil, fmt.Errorf("missing required parameter: org")
	}

	state := q.State
	if state == "" {
		state = "open"
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	opts := &github.ListAlertsOptions{
		State:       github.String(state),
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	if len(q.Severities) > 0 {
		opts.Severity = github.String(strings.Join(q.Severities, ","))
	}

	var alerts []Alert
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, resp, err := s.client.Dependabot.ListOrgAlerts(ctx, q.Org, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list alerts for %s: %w", q.Org, err)
		}
		for _, a := range page {
			alerts = append(alerts, convertAlert(a))
		}

		// The org alerts endpoint paginates by cursor, not page number.
		if resp.After == "" {
			break
		}
		opts.ListCursorOptions.After = resp.After
	}
	return alerts, nil
}

// convertAlert maps the API alert onto the pipeline's wire model.
func convertAlert(a *github.DependabotAlert) Alert {
	alert := Alert{
		Number:  a.GetNumber(),
		State:   a.GetState(),
		URL:     a.GetURL(),
		HTMLURL: a.GetHTMLURL(),
	}
	if a.CreatedAt != nil {
		alert.CreatedAt = a.CreatedAt.Format(time.RFC3339)
	}
	if a.UpdatedAt != nil {
		alert.UpdatedAt = a.UpdatedAt.Format(time.RFC3339)
	}
	if repo := a.Repository; repo != nil {
		alert.Repository = &Repository{
			FullName: repo.GetFullName(),
			HTMLURL:  repo.GetHTMLURL(),
		}
	}
	if dep := a.Dependency; dep != nil {
		alert.Dependency = Dependency{
			Package:      convertPackage(dep.Package),
			ManifestPath: dep.GetManifestPath(),
			Scope:        dep.GetScope(),
		}
	}
	if sa := a.SecurityAdvisory; sa != nil {
		advisory := &SecurityAdvisory{
			GHSAID:      sa.GetGHSAID(),
			CVEID:       sa.GetCVEID(),
			Summary:     sa.GetSummary(),
			Description: sa.GetDescription(),
			Severity:    sa.GetSeverity(),
		}
		for _, id := range sa.Identifiers {
			advisory.Identifiers = append(advisory.Identifiers, Identifier{
				Type:  id.GetType(),
				Value: id.GetValue(),
			})
		}
		for _, ref := range sa.References {
			advisory.References = append(advisory.References, Reference{URL: ref.GetURL()})
		}
		if sa.CVSS != nil && sa.CVSS.Score != nil {
			advisory.CVSS = &CVSS{
				Score:        *sa.CVSS.Score,
				VectorString: sa.CVSS.GetVectorString(),
			}
		}
		for _, v := range sa.Vulnerabilities {
			vuln := Vulnerability{
				VulnerableVersionRange: v.GetVulnerableVersionRange(),
			}
			if v.Package != nil {
				pkg := convertPackage(v.Package)
				vuln.Package = &pkg
			}
			if v.FirstPatchedVersion != nil {
				vuln.FirstPatchedVersion = &FirstPatchedVersion{
					Identifier: v.FirstPatchedVersion.GetIdentifier(),
				}
			}
			advisory.Vulnerabilities = append(advisory.Vulnerabilities, vuln)
		}
		alert.SecurityAdvisory = advisory
	}
	if sv := a.SecurityVulnerability; sv != nil {
		vuln := &SecurityVulnerability{
			Package:                convertPackage(sv.Package),
			Severity:               sv.GetSeverity(),
			VulnerableVersionRange: sv.GetVulnerableVersionRange(),
		}
		if sv.FirstPatchedVersion != nil {
			vuln.FirstPatchedVersion = &FirstPatchedVersion{
				Identifier: sv.FirstPatchedVersion.GetIdentifier(),
			}
		}
		alert.SecurityVulnerability = vuln
	}
	return alert
}

func convertPackage(p *github.VulnerabilityPackage) Package {
	return Package{
		Ecosystem: p.GetEcosystem(),
		Name:      p.GetName(),
	}
}
