// internal/ticketing/jira.go
package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/packagebot/internal/config"
)

// JiraAdapter files tickets in a Jira Cloud project through the REST v3
// API. There is no maintained Go SDK for Jira Cloud worth carrying, so
// this speaks the two endpoints it needs directly.
type JiraAdapter struct {
	baseURL    string
	email      string
	apiToken   config.Secret
	projectKey string
	httpClient *http.Client
}

// JiraOption configures a JiraAdapter.
type JiraOption func(*JiraAdapter)

// WithHTTPClient overrides the HTTP client. Used in tests.
func WithHTTPClient(c *http.Client) JiraOption {
	return func(j *JiraAdapter) { j.httpClient = c }
}

// NewJiraAdapter creates an adapter for the given Jira Cloud site.
func NewJiraAdapter(cfg config.JiraConfig, opts ...JiraOption) *JiraAdapter {
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	j := &JiraAdapter{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		email:      cfg.Email,
		apiToken:   cfg.APIToken,
		projectKey: cfg.ProjectKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// CreateTicket files a tracking ticket for an opened pull request. When
// the request carries an idempotency key, an existing ticket labeled
// with that key is returned instead of creating a duplicate.
func (j *JiraAdapter) CreateTicket(ctx context.Context, req CreateTicketRequest) (*Ticket, error) {
	if req.Repo == "" || req.PRURL == "" {
		return nil, fmt.Errorf("repo and pr_url are required")
	}

	if req.IdempotencyKey != "" {
		existing, err := j.findByLabel(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	payload := j.issuePayload(req)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode issue payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/rest/api/3/issue", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build issue request: %w", err)
	}
	j.prepare(httpReq)

	resp, err := j.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("issue creation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("issue creation returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode issue response: %w", err)
	}

	return &Ticket{
		Key: created.Key,
		URL: fmt.Sprintf("%s/browse/%s", j.baseURL, created.Key),
	}, nil
}

// findByLabel searches for an existing ticket with the idempotency label.
func (j *JiraAdapter) findByLabel(ctx context.Context, label string) (*Ticket, error) {
	jql := fmt.Sprintf(`project = %q AND labels = %q`, j.projectKey, label)
	endpoint := fmt.Sprintf("%s/rest/api/3/search?jql=%s&maxResults=1&fields=key", j.baseURL, url.QueryEscape(jql))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	j.prepare(httpReq)

	resp, err := j.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("issue search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("issue search returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Issues []struct {
			Key string `json:"key"`
		} `json:"issues"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if len(result.Issues) == 0 {
		return nil, nil
	}

	key := result.Issues[0].Key
	return &Ticket{Key: key, URL: fmt.Sprintf("%s/browse/%s", j.baseURL, key)}, nil
}

func (j *JiraAdapter) prepare(req *http.Request) {
	req.SetBasicAuth(j.email, j.apiToken.Value())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// issuePayload builds the REST v3 issue document. Descriptions use the
// Atlassian Document Format.
func (j *JiraAdapter) issuePayload(req CreateTicketRequest) map[string]any {
	lines := []string{
		fmt.Sprintf("Security remediation pull request for %s/%s: %s", req.Org, req.Repo, req.PRURL),
	}
	if req.Severity != "" {
		lines = append(lines, fmt.Sprintf("Worst severity: %s across %d packages.", req.Severity, req.PackageCount))
	}
	if len(req.MajorVersionUpdates) > 0 {
		lines = append(lines, "Major version updates requiring careful review: "+strings.Join(req.MajorVersionUpdates, ", "))
	}

	content := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		content = append(content, map[string]any{
			"type": "paragraph",
			"content": []map[string]any{
				{"type": "text", "text": line},
			},
		})
	}

	labels := []string{"packagebot", "security-remediation"}
	if req.IdempotencyKey != "" {
		labels = append(labels, req.IdempotencyKey)
	}

	return map[string]any{
		"fields": map[string]any{
			"project":   map[string]any{"key": j.projectKey},
			"issuetype": map[string]any{"name": "Task"},
			"summary":   fmt.Sprintf("Review security updates for %s (PR #%d)", req.Repo, req.PRNumber),
			"labels":    labels,
			"description": map[string]any{
				"type":    "doc",
				"version": 1,
				"content": content,
			},
		},
	}
}
