package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fyrsmithlabs/packagebot/internal/plan"
)

// SecurityPlanWorkflow builds the remediation plan: fetch open alerts,
// fold them into the per-repository plan, persist it and load it back
// so the caller gets the repositories to remediate.
func SecurityPlanWorkflow(ctx workflow.Context, input SecurityPlanInput) (*SecurityPlanResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting security plan workflow", "org", input.Org)

	if input.Org == "" {
		return nil, fmt.Errorf("missing required parameter: org")
	}

	var a *Activities

	fetchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	})

	var fetched FetchAlertsResult
	err := workflow.ExecuteActivity(fetchCtx, a.FetchAlerts, FetchAlertsInput{
		Org:        input.Org,
		State:      input.State,
		Severities: input.Severities,
	}).Get(ctx, &fetched)
	if err != nil {
		return nil, WrapActivityError("failed to fetch security alerts", err)
	}

	buildCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})

	var built BuildPlanResult
	err = workflow.ExecuteActivity(buildCtx, a.BuildPlan, BuildPlanInput{
		Org:    input.Org,
		Alerts: fetched.Alerts,
	}).Get(ctx, &built)
	if err != nil {
		return nil, WrapActivityError("failed to build remediation plan", err)
	}

	loadCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Second,
			MaximumAttempts:    3,
		},
	})

	var orgPlan plan.OrgPlan
	err = workflow.ExecuteActivity(loadCtx, a.LoadPlan, LoadPlanInput{
		PlanPath: built.PlanPath,
	}).Get(ctx, &orgPlan)
	if err != nil {
		return nil, WrapActivityError("failed to load remediation plan", err)
	}

	logger.Info("Security plan ready",
		"org", input.Org, "repositories", len(orgPlan.Repositories), "alerts", built.AlertCount)

	return &SecurityPlanResult{
		Org:          input.Org,
		AlertCount:   built.AlertCount,
		RepoCount:    len(orgPlan.Repositories),
		PlanPath:     built.PlanPath,
		Repositories: orgPlan.Repositories,
	}, nil
}
