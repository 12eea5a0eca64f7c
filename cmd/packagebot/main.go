// Package main implements the packagebot CLI for triggering pipeline runs
// against a Temporal cluster.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/fyrsmithlabs/packagebot/internal/config"
	"github.com/fyrsmithlabs/packagebot/internal/workflows"
)

var (
	// flagOrg overrides GITHUB_ORG for this invocation
	flagOrg string
	// flagState filters alerts by state (open, fixed, dismissed)
	flagState string
	// flagSeverities filters alerts by severity
	flagSeverities []string
	// flagSkipRepos excludes repositories from remediation
	flagSkipRepos []string
	// flagAutoReview requests an automated review on opened pull requests
	flagAutoReview bool
	// flagNoRemediate limits a run to plan generation
	flagNoRemediate bool
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "packagebot",
	Short: "CLI for triggering security remediation pipeline runs",
	Long: `packagebot triggers Dependabot alert aggregation and automated
remediation workflows on a Temporal cluster. A worker must be running on the
packagebot task queue for commands to make progress.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagOrg, "org", "", "GitHub organization (defaults to GITHUB_ORG)")
	rootCmd.PersistentFlags().StringVar(&flagState, "state", "open", "alert state filter")
	rootCmd.PersistentFlags().StringSliceVar(&flagSeverities, "severity", nil, "severity filter (repeatable)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
}

// runCmd starts a full pipeline run: plan, remediation fan-out, run report.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full remediation pipeline",
	Long: `Run the full pipeline: fetch Dependabot alerts, build the remediation
plan, remediate each repository, and post the run report.

Examples:
  # Full run against the configured organization
  packagebot run

  # Plan only, no remediation
  packagebot run --no-remediate

  # Skip repositories that are mid-migration
  packagebot run --skip legacy-api --skip old-frontend`,
	RunE: runPipeline,
}

// planCmd builds the remediation plan without touching any repository.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build the remediation plan only",
	Long: `Fetch Dependabot alerts and build the aggregated remediation plan
without running any remediation.

Examples:
  # Plan for the configured organization
  packagebot plan

  # Only critical and high alerts
  packagebot plan --severity critical --severity high`,
	RunE: runPlan,
}

func init() {
	runCmd.Flags().StringSliceVar(&flagSkipRepos, "skip", nil, "repository to skip (repeatable)")
	runCmd.Flags().BoolVar(&flagAutoReview, "auto-review", false, "request automated review on opened pull requests")
	runCmd.Flags().BoolVar(&flagNoRemediate, "no-remediate", false, "build the plan but skip remediation")
}

// dial resolves the target org and connects to Temporal.
func dial() (client.Client, *config.Config, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, "", fmt.Errorf("loading configuration: %w", err)
	}

	org := flagOrg
	if org == "" {
		org = cfg.GitHub.Org
	}
	if org == "" {
		return nil, nil, "", fmt.Errorf("no organization: set --org or GITHUB_ORG")
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return nil, nil, "", fmt.Errorf("unable to connect to Temporal at %s: %w", cfg.Temporal.HostPort, err)
	}
	return c, cfg, org, nil
}

// workflowID is deterministic per org, so a retried trigger reattaches
// to a run that is still executing instead of starting a duplicate.
func workflowID(kind, org string) string {
	return fmt.Sprintf("packagebot-%s-%s", kind, org)
}

// runPipeline handles the run command
func runPipeline(cmd *cobra.Command, args []string) error {
	c, cfg, org, err := dial()
	if err != nil {
		return err
	}
	defer c.Close()

	input := workflows.PackagebotInput{
		Org:               org,
		State:             flagState,
		Severities:        flagSeverities,
		EnableRemediation: !flagNoRemediate,
		SkipRepos:         flagSkipRepos,
		AutoReview:        flagAutoReview,
	}

	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID("run", org),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.PackagebotWorkflow, input)
	if err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	fmt.Fprintf(os.Stderr, "[packagebot] started run %s\n", run.GetID())

	var result workflows.PackagebotResult
	if err := run.Get(ctx, &result); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	return printJSON(result)
}

// runPlan handles the plan command
func runPlan(cmd *cobra.Command, args []string) error {
	c, cfg, org, err := dial()
	if err != nil {
		return err
	}
	defer c.Close()

	input := workflows.SecurityPlanInput{
		Org:        org,
		State:      flagState,
		Severities: flagSeverities,
	}

	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID("plan", org),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.SecurityPlanWorkflow, input)
	if err != nil {
		return fmt.Errorf("failed to start plan workflow: %w", err)
	}

	fmt.Fprintf(os.Stderr, "[packagebot] started plan %s\n", run.GetID())

	var result workflows.SecurityPlanResult
	if err := run.Get(ctx, &result); err != nil {
		return fmt.Errorf("plan workflow failed: %w", err)
	}
	return printJSON(result)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
