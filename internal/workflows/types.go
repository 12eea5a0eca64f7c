// Package workflows contains the durable pipeline: plan building,
// per-repository remediation sagas and the org-level orchestrator.
package workflows

import (
	"github.com/fyrsmithlabs/packagebot/internal/advisory"
	"github.com/fyrsmithlabs/packagebot/internal/plan"
)

// TaskQueue is the queue all packagebot workflows and activities run on.
const TaskQueue = "packagebot-task-queue"

// Outcome statuses shared by repository and org results.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// SecurityPlanInput starts the plan-building phase.
type SecurityPlanInput struct {
	Org        string   `json:"org"`
	State      string   `json:"state,omitempty"`
	Severities []string `json:"severities,omitempty"`
}

// SecurityPlanResult reports the produced plan artifact.
type SecurityPlanResult struct {
	Org          string                `json:"org"`
	AlertCount   int                   `json:"alert_count"`
	RepoCount    int                   `json:"repo_count"`
	PlanPath     string                `json:"plan_path"`
	Repositories []plan.RepositoryPlan `json:"repositories"`
}

// FetchAlertsInput parametrizes the alert fetch activity.
type FetchAlertsInput struct {
	Org        string   `json:"org"`
	State      string   `json:"state,omitempty"`
	Severities []string `json:"severities,omitempty"`
}

// FetchAlertsResult carries the fetched alerts into the next stage.
type FetchAlertsResult struct {
	Alerts []advisory.Alert `json:"alerts"`
	Count  int              `json:"count"`
}

// BuildPlanInput carries raw alerts into the aggregation activity.
type BuildPlanInput struct {
	Org    string           `json:"org"`
	Alerts []advisory.Alert `json:"raw_alerts"`
}

// BuildPlanResult reports the persisted plan artifact.
type BuildPlanResult struct {
	PlanPath   string `json:"plan_path"`
	RepoCount  int    `json:"repo_count"`
	AlertCount int    `json:"alert_count"`
}

// LoadPlanInput asks for a persisted plan artifact.
type LoadPlanInput struct {
	PlanPath string `json:"plan_path"`
}

// RepoRemediationInput starts one per-repository saga.
type RepoRemediationInput struct {
	Org        string              `json:"org"`
	Repository plan.RepositoryPlan `json:"repository"`
	AutoReview bool                `json:"auto_review,omitempty"`
}

// RepoOutcome is the result of one repository's remediation saga. The
// saga always returns an outcome; stage errors become fields here, not
// workflow failures.
type RepoOutcome struct {
	RepoName            string   `json:"repo_name"`
	Status              string   `json:"status"`
	BranchName          string   `json:"branch_name,omitempty"`
	CommitHash          string   `json:"commit_hash,omitempty"`
	PRURL               string   `json:"pr_url,omitempty"`
	PRNumber            int      `json:"pr_number,omitempty"`
	TicketKey           string   `json:"ticket_key,omitempty"`
	TicketURL           string   `json:"ticket_url,omitempty"`
	TicketError         string   `json:"ticket_error,omitempty"`
	MajorVersionUpdates []string `json:"major_version_updates,omitempty"`
	RemediationMS       int64    `json:"remediation_duration_ms"`
	PullRequestMS       int64    `json:"pull_request_duration_ms"`
	TicketMS            int64    `json:"ticket_duration_ms"`
	TotalCostUSD        float64  `json:"total_cost_usd,omitempty"`
	NumTurns            int      `json:"num_turns,omitempty"`
	Error               string   `json:"error,omitempty"`
}

// RemediateRepoInput parametrizes the Stage A activity.
type RemediateRepoInput struct {
	Org        string              `json:"org"`
	Repository plan.RepositoryPlan `json:"repository"`
}

// RemediateRepoResult is the Stage A activity result.
type RemediateRepoResult struct {
	BranchName          string   `json:"branch_name"`
	CommitHash          string   `json:"commit_hash,omitempty"`
	MajorVersionUpdates []string `json:"major_version_updates,omitempty"`
	TotalCostUSD        float64  `json:"total_cost_usd,omitempty"`
	NumTurns            int      `json:"num_turns,omitempty"`
}

// OpenPullRequestInput parametrizes the Stage B activity.
type OpenPullRequestInput struct {
	Org                 string              `json:"org"`
	Repository          plan.RepositoryPlan `json:"repository"`
	Branch              string              `json:"branch"`
	MajorVersionUpdates []string            `json:"major_version_updates,omitempty"`
	AutoReview          bool                `json:"auto_review,omitempty"`
	IdempotencyKey      string              `json:"idempotency_key,omitempty"`
}

// OpenPullRequestResult is the Stage B activity result.
type OpenPullRequestResult struct {
	PRURL    string `json:"pr_url"`
	PRNumber int    `json:"pr_number"`
}

// CreateTicketInput parametrizes the Stage C activity.
type CreateTicketInput struct {
	Org                 string   `json:"org"`
	Repo                string   `json:"repo"`
	PRURL               string   `json:"pr_url"`
	PRNumber            int      `json:"pr_number"`
	Severity            string   `json:"severity,omitempty"`
	PackageCount        int      `json:"package_count,omitempty"`
	MajorVersionUpdates []string `json:"major_version_updates,omitempty"`
	IdempotencyKey      string   `json:"idempotency_key,omitempty"`
}

// CreateTicketResult is the Stage C activity result.
type CreateTicketResult struct {
	TicketKey string `json:"ticket_key"`
	TicketURL string `json:"ticket_url"`
}

// OrchestratorInput starts the org-level fan-out.
type OrchestratorInput struct {
	Org          string                `json:"org"`
	Repositories []plan.RepositoryPlan `json:"repositories"`
	SkipRepos    []string              `json:"skip_repos,omitempty"`
	AutoReview   bool                  `json:"auto_review,omitempty"`
}

// OrgOutcome aggregates per-repository outcomes for one run.
type OrgOutcome struct {
	Status          string        `json:"status"`
	Org             string        `json:"org"`
	TotalRepos      int           `json:"total_repos"`
	SuccessfulRepos int           `json:"successful_repos"`
	FailedRepos     int           `json:"failed_repos"`
	SkippedRepos    int           `json:"skipped_repos"`
	Results         []RepoOutcome `json:"results"`
}

// NotifyRunInput parametrizes the optional run-report activity.
type NotifyRunInput struct {
	Org     string      `json:"org"`
	Outcome *OrgOutcome `json:"outcome,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PackagebotInput starts the full pipeline.
type PackagebotInput struct {
	Org               string   `json:"org"`
	State             string   `json:"state,omitempty"`
	Severities        []string `json:"severities,omitempty"`
	EnableRemediation bool     `json:"enable_remediation"`
	SkipRepos         []string `json:"skip_repos,omitempty"`
	AutoReview        bool     `json:"auto_review,omitempty"`
}

// PackagebotResult summarizes the full pipeline run.
type PackagebotResult struct {
	Org              string              `json:"org"`
	Plan             *SecurityPlanResult `json:"plan,omitempty"`
	Remediation      *OrgOutcome         `json:"remediation,omitempty"`
	RemediationError string              `json:"remediation_error,omitempty"`
	NotifyError      string              `json:"notify_error,omitempty"`
}
