package main

import (
	"context"
	"errors"
	"fmt"

	commonpb "go.temporal.io/api/common/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/packagebot/internal/config"
	"github.com/fyrsmithlabs/packagebot/internal/logging"
	"github.com/fyrsmithlabs/packagebot/internal/workflows"
)

// ensureSchedule creates the weekly pipeline schedule, or recreates it when
// the stored workflow input no longer matches the current configuration.
// Schedules survive worker restarts, so a plain Create is expected to fail
// with ErrScheduleAlreadyRunning on every start after the first.
func ensureSchedule(ctx context.Context, c client.Client, cfg *config.Config, logger *logging.Logger) error {
	sc := c.ScheduleClient()

	_, err := sc.Create(ctx, scheduleOptions(cfg))
	if err == nil {
		logger.Info(ctx, "schedule created",
			zap.String("schedule_id", scheduleID),
			zap.String("cron", scheduleCron),
		)
		return nil
	}
	if !errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		return fmt.Errorf("creating schedule: %w", err)
	}

	handle := sc.GetHandle(ctx, scheduleID)
	desc, err := handle.Describe(ctx)
	if err != nil {
		return fmt.Errorf("describing existing schedule: %w", err)
	}

	if scheduleCurrent(desc, cfg) {
		logger.Info(ctx, "schedule is up to date", zap.String("schedule_id", scheduleID))
		return nil
	}

	logger.Info(ctx, "schedule configuration changed, recreating",
		zap.String("schedule_id", scheduleID),
	)
	if err := handle.Delete(ctx); err != nil {
		return fmt.Errorf("deleting stale schedule: %w", err)
	}
	if _, err := sc.Create(ctx, scheduleOptions(cfg)); err != nil {
		return fmt.Errorf("recreating schedule: %w", err)
	}

	logger.Info(ctx, "schedule recreated",
		zap.String("schedule_id", scheduleID),
		zap.String("cron", scheduleCron),
	)
	return nil
}

func scheduleOptions(cfg *config.Config) client.ScheduleOptions {
	return client.ScheduleOptions{
		ID: scheduleID,
		Spec: client.ScheduleSpec{
			CronExpressions: []string{scheduleCron},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        "packagebot-scheduled",
			Workflow:  workflows.PackagebotWorkflow,
			TaskQueue: cfg.Temporal.TaskQueue,
			Args: []interface{}{workflows.PackagebotInput{
				Org:               cfg.GitHub.Org,
				State:             "open",
				EnableRemediation: true,
			}},
		},
	}
}

// scheduleCurrent reports whether the described schedule already starts the
// pipeline with the configured input. Cron expressions are normalized into
// structured calendar specs server side and do not round-trip, so the
// comparison is limited to the workflow arguments.
func scheduleCurrent(desc *client.ScheduleDescription, cfg *config.Config) bool {
	action, ok := desc.Schedule.Action.(*client.ScheduleWorkflowAction)
	if !ok || len(action.Args) != 1 {
		return false
	}
	payload, ok := action.Args[0].(*commonpb.Payload)
	if !ok {
		return false
	}

	var input workflows.PackagebotInput
	if err := converter.GetDefaultDataConverter().FromPayload(payload, &input); err != nil {
		return false
	}
	return input.Org == cfg.GitHub.Org &&
		input.State == "open" &&
		input.EnableRemediation
}
