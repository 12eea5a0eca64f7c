// Package agent drives the coding agent that applies dependency
// upgrades for a single repository.
package agent

import (
	"context"

	"github.com/fyrsmithlabs/packagebot/internal/plan"
)

// RemediateRequest asks the agent to remediate one repository.
type RemediateRequest struct {
	Org          string              `json:"org"`
	Repository   plan.RepositoryPlan `json:"repository"`
	WorkspaceDir string              `json:"workspace_dir"`
}

// PackageUpdate records one applied dependency upgrade.
type PackageUpdate struct {
	Name        string `json:"name"`
	Ecosystem   string `json:"ecosystem,omitempty"`
	FromVersion string `json:"from_version,omitempty"`
	ToVersion   string `json:"to_version"`
}

// RemediateResult is the agent's report after working a repository.
// BranchName empty means no remediation branch was produced, which
// callers treat as a failed remediation regardless of the error value.
type RemediateResult struct {
	BranchName          string          `json:"branch_name"`
	CommitHash          string          `json:"commit_hash,omitempty"`
	MajorVersionUpdates []string        `json:"major_version_updates"`
	PackagesUpdated     []PackageUpdate `json:"packages_updated"`
	Summary             string          `json:"summary,omitempty"`
	TotalCostUSD        float64         `json:"total_cost_usd,omitempty"`
	NumTurns            int             `json:"num_turns,omitempty"`
}

// Adapter is the boundary to whichever agent backend performs the
// remediation work.
type Adapter interface {
	Remediate(ctx context.Context, req RemediateRequest) (*RemediateResult, error)
}
