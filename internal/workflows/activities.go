package workflows

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/fyrsmithlabs/packagebot/internal/advisory"
	"github.com/fyrsmithlabs/packagebot/internal/agent"
	"github.com/fyrsmithlabs/packagebot/internal/codehost"
	"github.com/fyrsmithlabs/packagebot/internal/notify"
	"github.com/fyrsmithlabs/packagebot/internal/plan"
	"github.com/fyrsmithlabs/packagebot/internal/ticketing"
)

// Activities holds the pipeline's side-effecting operations. Adapters
// are injected at worker startup so credentials never travel through
// workflow payloads.
type Activities struct {
	Source       advisory.Source
	Store        *plan.Store
	Agent        agent.Adapter
	CodeHost     codehost.Adapter
	Ticketing    ticketing.Adapter
	Notifier     notify.Notifier
	WorkspaceDir string
}

// FetchAlerts retrieves all open alerts for the organization.
func (a *Activities) FetchAlerts(ctx context.Context, input FetchAlertsInput) (*FetchAlertsResult, error) {
	logger := activity.GetLogger(ctx)

	if input.Org == "" {
		return nil, temporal.NewNonRetryableApplicationError(
			"missing required parameter: org", "InvalidInput", nil)
	}

	logger.Info("Fetching security alerts",
		"org", input.Org, "state", input.State, "severities", input.Severities)

	alerts, err := a.Source.Fetch(ctx, advisory.Query{
		Org:        input.Org,
		State:      input.State,
		Severities: input.Severities,
	})
	if err != nil {
		activityErrorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("activity", "fetch_alerts")))
		return nil, WrapActivityError("failed to fetch security alerts", err)
	}

	alertsFetchedCounter.Add(ctx, int64(len(alerts)), metric.WithAttributes(attribute.String("org", input.Org)))
	logger.Info("Fetched security alerts", "count", len(alerts))

	return &FetchAlertsResult{Alerts: alerts, Count: len(alerts)}, nil
}

// BuildPlan folds raw alerts into the remediation plan and persists it.
func (a *Activities) BuildPlan(ctx context.Context, input BuildPlanInput) (*BuildPlanResult, error) {
	logger := activity.GetLogger(ctx)

	p, err := plan.Build(input.Org, input.Alerts)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"failed to build remediation plan", "InvalidInput", err)
	}

	path, err := a.Store.Write(p)
	if err != nil {
		activityErrorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("activity", "build_plan")))
		return nil, WrapActivityError("failed to persist remediation plan", err)
	}

	logger.Info("Persisted remediation plan",
		"path", path, "repositories", len(p.Repositories), "alerts", p.AlertCount())

	return &BuildPlanResult{
		PlanPath:   path,
		RepoCount:  len(p.Repositories),
		AlertCount: p.AlertCount(),
	}, nil
}

// LoadPlan reads a persisted plan artifact back.
func (a *Activities) LoadPlan(ctx context.Context, input LoadPlanInput) (*plan.OrgPlan, error) {
	logger := activity.GetLogger(ctx)

	p, err := a.Store.Read(input.PlanPath)
	if err != nil {
		return nil, WrapActivityError("failed to load remediation plan", err)
	}

	logger.Info("Loaded remediation plan", "path", input.PlanPath, "repositories", len(p.Repositories))
	return p, nil
}

// RemediateRepository runs the coding agent against one repository.
// The agent can run for many minutes, so a background ticker heartbeats
// while it works.
func (a *Activities) RemediateRepository(ctx context.Context, input RemediateRepoInput) (*RemediateRepoResult, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()

	if input.Repository.Name == "" {
		return nil, temporal.NewNonRetryableApplicationError(
			"missing repository name", "InvalidInput", nil)
	}

	logger.Info("Starting repository remediation",
		"org", input.Org, "repository", input.Repository.Name,
		"packages", len(input.Repository.SecurityAlerts))

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatCtx.Done():
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx, input.Repository.Name)
			}
		}
	}()

	result, err := a.Agent.Remediate(ctx, agent.RemediateRequest{
		Org:          input.Org,
		Repository:   input.Repository,
		WorkspaceDir: agent.WorkspacePath(a.WorkspaceDir, input.Repository.Name),
	})
	stageDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("stage", "remediate")))
	if err != nil {
		activityErrorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("activity", "remediate_repository")))
		return nil, WrapActivityError(
			fmt.Sprintf("failed to remediate repository %s", input.Repository.Name), err)
	}
	if result.BranchName == "" {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("agent produced no remediation branch for %s", input.Repository.Name),
			"NoBranch", nil)
	}

	logger.Info("Repository remediation complete",
		"repository", input.Repository.Name, "branch", result.BranchName,
		"cost_usd", result.TotalCostUSD, "turns", result.NumTurns)

	return &RemediateRepoResult{
		BranchName:          result.BranchName,
		CommitHash:          result.CommitHash,
		MajorVersionUpdates: result.MajorVersionUpdates,
		TotalCostUSD:        result.TotalCostUSD,
		NumTurns:            result.NumTurns,
	}, nil
}

// OpenPullRequest opens (or reuses) the pull request for a remediation
// branch.
func (a *Activities) OpenPullRequest(ctx context.Context, input OpenPullRequestInput) (*OpenPullRequestResult, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()

	result, err := a.CodeHost.OpenRequest(ctx, codehost.OpenRequest{
		Org:                 input.Org,
		Repo:                input.Repository.Name,
		Branch:              input.Branch,
		Repository:          input.Repository,
		MajorVersionUpdates: input.MajorVersionUpdates,
		AutoReview:          input.AutoReview,
		IdempotencyKey:      input.IdempotencyKey,
	})
	stageDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("stage", "pull_request")))
	if err != nil {
		activityErrorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("activity", "open_pull_request")))
		return nil, WrapActivityError(
			fmt.Sprintf("failed to open pull request for %s", input.Repository.Name), err)
	}

	logger.Info("Pull request ready",
		"repository", input.Repository.Name, "url", result.URL, "number", result.Number)

	return &OpenPullRequestResult{PRURL: result.URL, PRNumber: result.Number}, nil
}

// CreateTicket files the tracking ticket for an opened pull request.
func (a *Activities) CreateTicket(ctx context.Context, input CreateTicketInput) (*CreateTicketResult, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()

	ticket, err := a.Ticketing.CreateTicket(ctx, ticketing.CreateTicketRequest{
		Org:                 input.Org,
		Repo:                input.Repo,
		PRURL:               input.PRURL,
		PRNumber:            input.PRNumber,
		Severity:            input.Severity,
		PackageCount:        input.PackageCount,
		MajorVersionUpdates: input.MajorVersionUpdates,
		IdempotencyKey:      input.IdempotencyKey,
	})
	stageDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("stage", "ticket")))
	if err != nil {
		activityErrorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("activity", "create_ticket")))
		return nil, WrapActivityError(
			fmt.Sprintf("failed to create tracking ticket for %s", input.Repo), err)
	}

	logger.Info("Tracking ticket created", "repository", input.Repo, "key", ticket.Key)
	return &CreateTicketResult{TicketKey: ticket.Key, TicketURL: ticket.URL}, nil
}

// NotifyRunComplete records run metrics and posts the run report.
// A missing notifier is not an error; the report phase is optional.
func (a *Activities) NotifyRunComplete(ctx context.Context, input NotifyRunInput) error {
	logger := activity.GetLogger(ctx)

	runStatus := StatusFailure
	if input.Outcome != nil {
		runStatus = input.Outcome.Status
		for _, r := range input.Outcome.Results {
			repoOutcomeCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("status", r.Status)))
		}
	}
	pipelineRunCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("org", input.Org),
		attribute.String("status", runStatus)))

	if a.Notifier == nil {
		logger.Debug("Notifier not configured, skipping run report")
		return nil
	}

	report := notify.RunReport{Org: input.Org, Error: input.Error}
	if input.Outcome != nil {
		report.Status = input.Outcome.Status
		report.TotalRepos = input.Outcome.TotalRepos
		report.Successful = input.Outcome.SuccessfulRepos
		report.Failed = input.Outcome.FailedRepos
		report.Skipped = input.Outcome.SkippedRepos
		for _, r := range input.Outcome.Results {
			if r.PRURL != "" {
				report.PRURLs = append(report.PRURLs, r.PRURL)
			}
		}
	} else if report.Status == "" {
		report.Status = StatusFailure
	}

	if err := a.Notifier.NotifyRun(ctx, report); err != nil {
		return WrapActivityError("failed to post run report", err)
	}
	return nil
}
