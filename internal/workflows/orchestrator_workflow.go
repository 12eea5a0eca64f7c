package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"
)

// RemediationOrchestratorWorkflow fans out one RepoRemediationWorkflow
// child per repository, sequentially and in plan order. One repository
// failing never stops the rest: child errors become failure outcomes.
func RemediationOrchestratorWorkflow(ctx workflow.Context, input OrchestratorInput) (*OrgOutcome, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting remediation orchestrator",
		"org", input.Org, "repositories", len(input.Repositories), "skip", input.SkipRepos)

	skip := make(map[string]bool, len(input.SkipRepos))
	for _, name := range input.SkipRepos {
		skip[name] = true
	}

	outcome := &OrgOutcome{
		Org:        input.Org,
		TotalRepos: len(input.Repositories),
		Results:    make([]RepoOutcome, 0, len(input.Repositories)),
	}

	for i, repo := range input.Repositories {
		if skip[repo.Name] {
			logger.Info("Skipping repository", "repository", repo.Name)
			outcome.SkippedRepos++
			outcome.Results = append(outcome.Results, RepoOutcome{
				RepoName: repo.Name,
				Status:   StatusSkipped,
			})
			continue
		}

		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: fmt.Sprintf("%s-repo-%d-%s",
				workflow.GetInfo(ctx).WorkflowExecution.ID, i, repo.Name),
		})

		var repoOutcome RepoOutcome
		err := workflow.ExecuteChildWorkflow(childCtx, RepoRemediationWorkflow, RepoRemediationInput{
			Org:        input.Org,
			Repository: repo,
			AutoReview: input.AutoReview,
		}).Get(ctx, &repoOutcome)
		if err != nil {
			// The saga itself never fails; reaching this means the child
			// execution died (timeout, termination). Record and move on.
			logger.Error("Repository remediation child failed",
				"repository", repo.Name, "error", err)
			repoOutcome = RepoOutcome{
				RepoName: repo.Name,
				Status:   StatusFailure,
				Error:    FormatErrorForResult("remediation workflow failed", err),
			}
		}

		switch repoOutcome.Status {
		case StatusSuccess, StatusPartial:
			if repoOutcome.Status == StatusSuccess {
				outcome.SuccessfulRepos++
			} else {
				outcome.FailedRepos++
			}
		case StatusSkipped:
			outcome.SkippedRepos++
		default:
			outcome.FailedRepos++
		}

		outcome.Results = append(outcome.Results, repoOutcome)
	}

	outcome.Status = aggregateStatus(outcome)
	logger.Info("Remediation orchestrator complete",
		"org", input.Org, "status", outcome.Status,
		"successful", outcome.SuccessfulRepos, "failed", outcome.FailedRepos,
		"skipped", outcome.SkippedRepos)
	return outcome, nil
}

// aggregateStatus derives the org-level status from the tallies:
// success means nothing failed and not everything was skipped; partial
// means a mix of successes and failures; failure means no successes.
func aggregateStatus(o *OrgOutcome) string {
	switch {
	case o.FailedRepos == 0 && o.SuccessfulRepos > 0:
		return StatusSuccess
	case o.SuccessfulRepos > 0 && o.FailedRepos > 0:
		return StatusPartial
	default:
		return StatusFailure
	}
}
