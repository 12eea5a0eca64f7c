package workflows

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/packagebot/internal/workflows"

// Metrics for the remediation pipeline
var (
	pipelineRunCounter   metric.Int64Counter
	repoOutcomeCounter   metric.Int64Counter
	alertsFetchedCounter metric.Int64Counter
	stageDuration        metric.Float64Histogram
	activityErrorCounter metric.Int64Counter
)

// initMetrics initializes OpenTelemetry metrics for workflows.
// This is called once during package initialization. Without a metrics
// SDK provider configured, these are no-ops.
func initMetrics() {
	meter := otel.Meter(instrumentationName)

	var err error

	pipelineRunCounter, err = meter.Int64Counter(
		"packagebot.workflows.pipeline.runs",
		metric.WithDescription("Total number of remediation pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create pipeline run counter: %v", err))
	}

	repoOutcomeCounter, err = meter.Int64Counter(
		"packagebot.workflows.repo.outcomes",
		metric.WithDescription("Per-repository remediation outcomes by status"),
		metric.WithUnit("{outcome}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create repo outcome counter: %v", err))
	}

	alertsFetchedCounter, err = meter.Int64Counter(
		"packagebot.workflows.alerts.fetched",
		metric.WithDescription("Number of security alerts fetched from the source"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create alerts fetched counter: %v", err))
	}

	stageDuration, err = meter.Float64Histogram(
		"packagebot.workflows.stage.duration",
		metric.WithDescription("Duration of remediation saga stages"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create stage duration histogram: %v", err))
	}

	activityErrorCounter, err = meter.Int64Counter(
		"packagebot.workflows.activity.errors",
		metric.WithDescription("Number of activity execution errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create activity error counter: %v", err))
	}
}

func init() {
	initMetrics()
}
