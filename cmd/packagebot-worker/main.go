// Package main provides the Temporal worker for the packagebot
// remediation pipeline.
//
// The worker registers every workflow and activity on the packagebot
// task queue and maintains the weekly schedule that starts a full
// pipeline run.
//
// Usage:
//
//	TEMPORAL_HOST=localhost:7233 \
//	GITHUB_ORG=acme-corp \
//	GITHUB_TOKEN=ghp_xxx \
//	ANTHROPIC_API_KEY=sk-ant-xxx \
//	JIRA_BASE_URL=https://acme.atlassian.net \
//	JIRA_EMAIL=bot@acme.example \
//	JIRA_API_TOKEN=xxx \
//	./packagebot-worker
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/packagebot/internal/advisory"
	"github.com/fyrsmithlabs/packagebot/internal/agent"
	"github.com/fyrsmithlabs/packagebot/internal/codehost"
	"github.com/fyrsmithlabs/packagebot/internal/config"
	"github.com/fyrsmithlabs/packagebot/internal/logging"
	"github.com/fyrsmithlabs/packagebot/internal/notify"
	"github.com/fyrsmithlabs/packagebot/internal/plan"
	"github.com/fyrsmithlabs/packagebot/internal/ticketing"
	"github.com/fyrsmithlabs/packagebot/internal/workflows"
)

const (
	scheduleID = "packagebot-schedule"
	// Every Sunday at 20:00.
	scheduleCron = "0 20 * * 0"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewLogger(logging.NewDefaultConfig())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Tag every log line from here on with the target organization.
	ctx = logging.WithOrg(ctx, cfg.GitHub.Org)

	logger.Info(ctx, "packagebot worker starting",
		zap.String("temporal_host", cfg.Temporal.HostPort),
	)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logging.NewTemporalLogger(logger.Named("temporal")),
	})
	if err != nil {
		return fmt.Errorf("unable to create Temporal client: %w", err)
	}
	defer c.Close()

	logger.Info(ctx, "temporal client connected", zap.String("host", cfg.Temporal.HostPort))

	activities := &workflows.Activities{
		Source:       advisory.NewGitHubSource(cfg.GitHub.Token),
		Store:        plan.NewStore(cfg.Plan.Dir),
		Agent:        agent.NewAnthropicAdapter(cfg.Agent.APIKey, cfg.Agent.Model),
		CodeHost:     codehost.NewGitHubAdapter(cfg.GitHub.Token),
		Ticketing:    ticketing.NewJiraAdapter(cfg.Jira),
		WorkspaceDir: cfg.Agent.WorkspaceDir,
	}
	if cfg.SlackEnabled() {
		activities.Notifier = notify.NewSlackNotifier(cfg.Slack)
		logger.Info(ctx, "slack run reports enabled", zap.String("channel", cfg.Slack.ChannelID))
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: 20,
	})

	w.RegisterWorkflow(workflows.PackagebotWorkflow)
	w.RegisterWorkflow(workflows.SecurityPlanWorkflow)
	w.RegisterWorkflow(workflows.RemediationOrchestratorWorkflow)
	w.RegisterWorkflow(workflows.RepoRemediationWorkflow)
	w.RegisterActivity(activities)

	logger.Info(ctx, "worker configured", zap.String("task_queue", cfg.Temporal.TaskQueue))

	if err := ensureSchedule(ctx, c, cfg, logger); err != nil {
		return fmt.Errorf("maintaining schedule: %w", err)
	}

	workerErrors := make(chan error, 1)
	go func() {
		logger.Info(ctx, "worker starting")
		workerErrors <- w.Run(worker.InterruptCh())
	}()

	select {
	case err := <-workerErrors:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
	case <-ctx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	logger.Info(ctx, "worker stopped gracefully")
	return nil
}
