package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RepoRemediationWorkflow runs the three-stage saga for one repository:
// remediate, open a pull request, file a tracking ticket. It always
// returns an outcome; stage errors become outcome fields.
//
// Stage semantics:
//   - Stage A failing (or yielding no branch) fails the outcome and
//     short-circuits: B and C never run.
//   - Stage B failing after a successful A downgrades the outcome to
//     partial; C never runs.
//   - Stage C failing never downgrades the status. The ticket error is
//     recorded and the outcome stays success.
func RepoRemediationWorkflow(ctx workflow.Context, input RepoRemediationInput) (*RepoOutcome, error) {
	logger := workflow.GetLogger(ctx)
	info := workflow.GetInfo(ctx)

	outcome := &RepoOutcome{
		RepoName: input.Repository.Name,
		Status:   StatusFailure,
	}

	if input.Repository.Name == "" {
		outcome.Error = "missing repository name"
		return outcome, nil
	}

	logger.Info("Starting repository remediation saga",
		"org", input.Org, "repository", input.Repository.Name)

	// Stage B/C retries must not duplicate side effects, so both carry
	// a key derived from this workflow execution.
	idempotencyKey := fmt.Sprintf("%s-%s", info.WorkflowExecution.ID, input.Repository.Name)

	// Stage A: remediate.
	remediateCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    60 * time.Second,
			MaximumAttempts:    3,
		},
	})

	var a *Activities
	stageStart := workflow.Now(ctx)

	var remediated RemediateRepoResult
	err := workflow.ExecuteActivity(remediateCtx, a.RemediateRepository, RemediateRepoInput{
		Org:        input.Org,
		Repository: input.Repository,
	}).Get(ctx, &remediated)
	outcome.RemediationMS = workflow.Now(ctx).Sub(stageStart).Milliseconds()

	if err != nil {
		stageErr := NewWorkflowError("remediation", ErrorSeverityCritical, err, input.Repository.Name)
		outcome.Error = stageErr.Error()
		logger.Error("Remediation stage failed",
			"repository", input.Repository.Name, "severity", string(stageErr.Severity), "error", err)
		return outcome, nil
	}
	if remediated.BranchName == "" {
		outcome.Error = "remediation produced no branch"
		logger.Error("Remediation produced no branch", "repository", input.Repository.Name)
		return outcome, nil
	}

	outcome.BranchName = remediated.BranchName
	outcome.CommitHash = remediated.CommitHash
	outcome.MajorVersionUpdates = remediated.MajorVersionUpdates
	outcome.TotalCostUSD = remediated.TotalCostUSD
	outcome.NumTurns = remediated.NumTurns

	// Stage B: open the pull request.
	prCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    2,
		},
	})

	stageStart = workflow.Now(ctx)
	var opened OpenPullRequestResult
	err = workflow.ExecuteActivity(prCtx, a.OpenPullRequest, OpenPullRequestInput{
		Org:                 input.Org,
		Repository:          input.Repository,
		Branch:              remediated.BranchName,
		MajorVersionUpdates: remediated.MajorVersionUpdates,
		AutoReview:          input.AutoReview,
		IdempotencyKey:      idempotencyKey,
	}).Get(ctx, &opened)
	outcome.PullRequestMS = workflow.Now(ctx).Sub(stageStart).Milliseconds()

	if err != nil {
		stageErr := NewWorkflowError("pull request creation", ErrorSeverityHigh, err, input.Repository.Name)
		outcome.Status = StatusPartial
		outcome.Error = stageErr.Error()
		logger.Warn("Pull request stage failed, branch exists without review",
			"repository", input.Repository.Name, "branch", remediated.BranchName,
			"severity", string(stageErr.Severity), "error", err)
		return outcome, nil
	}

	outcome.PRURL = opened.PRURL
	outcome.PRNumber = opened.PRNumber
	outcome.Status = StatusSuccess

	// Stage C: tracking ticket. Never downgrades the status.
	ticketCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    2,
		},
	})

	stageStart = workflow.Now(ctx)
	var ticket CreateTicketResult
	err = workflow.ExecuteActivity(ticketCtx, a.CreateTicket, CreateTicketInput{
		Org:                 input.Org,
		Repo:                input.Repository.Name,
		PRURL:               opened.PRURL,
		PRNumber:            opened.PRNumber,
		Severity:            input.Repository.WorstSeverity(),
		PackageCount:        len(input.Repository.SecurityAlerts),
		MajorVersionUpdates: remediated.MajorVersionUpdates,
		IdempotencyKey:      idempotencyKey,
	}).Get(ctx, &ticket)
	outcome.TicketMS = workflow.Now(ctx).Sub(stageStart).Milliseconds()

	if err != nil {
		stageErr := NewWorkflowError("ticket creation", ErrorSeverityLow, err, input.Repository.Name)
		outcome.TicketError = stageErr.Error()
		logger.Warn("Ticket stage failed, pull request is open without a tracking ticket",
			"repository", input.Repository.Name, "pr_url", opened.PRURL,
			"severity", string(stageErr.Severity), "error", err)
	} else {
		outcome.TicketKey = ticket.TicketKey
		outcome.TicketURL = ticket.TicketURL
	}

	logger.Info("Repository remediation saga complete",
		"repository", input.Repository.Name, "status", outcome.Status, "pr_url", outcome.PRURL)
	return outcome, nil
}
