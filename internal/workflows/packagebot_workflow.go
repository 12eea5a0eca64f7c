package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// PackagebotWorkflow is the pipeline root: build the plan, then, when
// remediation is enabled and the plan found anything, fan out the
// per-repository sagas. A remediation-phase error is recorded in the
// result without failing the run; a plan-phase error fails it.
func PackagebotWorkflow(ctx workflow.Context, input PackagebotInput) (*PackagebotResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting packagebot pipeline",
		"org", input.Org, "remediation_enabled", input.EnableRemediation)

	result := &PackagebotResult{Org: input.Org}

	planCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: workflow.GetInfo(ctx).WorkflowExecution.ID + "-plan",
	})

	var planResult SecurityPlanResult
	err := workflow.ExecuteChildWorkflow(planCtx, SecurityPlanWorkflow, SecurityPlanInput{
		Org:        input.Org,
		State:      input.State,
		Severities: input.Severities,
	}).Get(ctx, &planResult)
	if err != nil {
		return nil, WrapActivityError("plan phase failed", err)
	}
	result.Plan = &planResult

	if input.EnableRemediation && len(planResult.Repositories) > 0 {
		remCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: workflow.GetInfo(ctx).WorkflowExecution.ID + "-remediation",
		})

		var orgOutcome OrgOutcome
		err = workflow.ExecuteChildWorkflow(remCtx, RemediationOrchestratorWorkflow, OrchestratorInput{
			Org:          input.Org,
			Repositories: planResult.Repositories,
			SkipRepos:    input.SkipRepos,
			AutoReview:   input.AutoReview,
		}).Get(ctx, &orgOutcome)
		if err != nil {
			result.RemediationError = FormatErrorForResult("remediation phase failed", err)
			logger.Error("Remediation phase failed", "org", input.Org, "error", err)
		} else {
			result.Remediation = &orgOutcome
		}
	} else if input.EnableRemediation {
		logger.Info("No repositories with open alerts, skipping remediation", "org", input.Org)
	}

	notifyCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    2,
		},
	})

	var a *Activities
	err = workflow.ExecuteActivity(notifyCtx, a.NotifyRunComplete, NotifyRunInput{
		Org:     input.Org,
		Outcome: result.Remediation,
		Error:   result.RemediationError,
	}).Get(ctx, nil)
	if err != nil {
		// Reporting is never worth failing a completed run over.
		result.NotifyError = FormatErrorForResult("run report failed", err)
		logger.Warn("Run report failed", "org", input.Org, "error", err)
	}

	logger.Info("Packagebot pipeline complete", "org", input.Org)
	return result, nil
}
