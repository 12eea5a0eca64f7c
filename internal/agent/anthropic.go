// internal/agent/anthropic.go
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/fyrsmithlabs/packagebot/internal/config"
)

const maxTokens = 4096

// AnthropicAdapter runs remediation through the Anthropic Messages API.
// The model works the repository in an isolated workspace and reports
// the outcome as a JSON object, which parseResult decodes.
type AnthropicAdapter struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicAdapter creates an adapter using the given credentials.
func NewAnthropicAdapter(apiKey config.Secret, model string) *AnthropicAdapter {
	client := anthropic.NewClient(option.WithAPIKey(apiKey.Value()))
	return &AnthropicAdapter{
		client: &client,
		model:  model,
	}
}

// Remediate asks the agent to upgrade the repository's vulnerable
// dependencies and reports the resulting branch.
func (a *AnthropicAdapter) Remediate(ctx context.Context, req RemediateRequest) (*RemediateResult, error) {
	if req.Repository.Name == "" {
		return nil, fmt.Errorf("missing repository name")
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("agent request failed for %s: %w", req.Repository.Name, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	result, err := parseResult(sb.String())
	if err != nil {
		return nil, fmt.Errorf("agent produced no usable result for %s: %w", req.Repository.Name, err)
	}
	if result.NumTurns == 0 {
		result.NumTurns = 1
	}
	return result, nil
}

// WorkspacePath returns a unique working directory for one remediation
// run so concurrent repositories never share a checkout.
func WorkspacePath(baseDir, repoName string) string {
	return filepath.Join(baseDir, fmt.Sprintf("%s-%s", repoName, uuid.NewString()[:8]))
}

func buildPrompt(req RemediateRequest) (string, error) {
	planJSON, err := json.MarshalIndent(req.Repository, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode repository plan: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are remediating security vulnerabilities in the repository %s/%s.\n\n", req.Org, req.Repository.Name)
	sb.WriteString("The remediation plan below lists each vulnerable package with its target version. ")
	sb.WriteString("Upgrade every listed package to at least its target version, preferring the smallest safe upgrade. ")
	fmt.Fprintf(&sb, "Work in the directory %s on a new branch named packagebot/security-updates, and commit the changes.\n\n", req.WorkspaceDir)
	sb.WriteString("Remediation plan:\n")
	sb.Write(planJSON)
	sb.WriteString("\n\nWhen finished, reply with only a JSON object of this shape:\n")
	sb.WriteString(`{"branch_name": "...", "commit_hash": "...", "major_version_updates": ["pkg 1.x -> 2.x"], "packages_updated": [{"name": "...", "ecosystem": "...", "from_version": "...", "to_version": "..."}], "summary": "...", "total_cost_usd": 0, "num_turns": 0}`)
	sb.WriteString("\nFlag every upgrade that crosses a major version in major_version_updates. If you could not produce a branch, say why in plain text instead.")
	return sb.String(), nil
}
