// Package notify posts run reports to Slack. Notification is optional
// and always non-critical: callers log failures and move on.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/fyrsmithlabs/packagebot/internal/config"
)

// RunReport summarizes one pipeline run for humans.
type RunReport struct {
	Org        string
	Status     string
	TotalRepos int
	Successful int
	Failed     int
	Skipped    int
	PRURLs     []string
	Error      string
}

// Notifier delivers run reports.
type Notifier interface {
	NotifyRun(ctx context.Context, report RunReport) error
}

type slackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts run reports to a Slack channel.
type SlackNotifier struct {
	client    slackAPI
	channelID string
}

// NewSlackNotifier creates a notifier for the configured channel.
func NewSlackNotifier(cfg config.SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		client:    slack.New(cfg.Token.Value()),
		channelID: cfg.ChannelID,
	}
}

// NotifyRun posts the report as a single message.
func (s *SlackNotifier) NotifyRun(ctx context.Context, report RunReport) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channelID,
		slack.MsgOptionText(formatReport(report), false))
	if err != nil {
		return fmt.Errorf("failed to post run report: %w", err)
	}
	return nil
}

func formatReport(report RunReport) string {
	var sb strings.Builder

	emoji := ":white_check_mark:"
	switch report.Status {
	case "failure":
		emoji = ":x:"
	case "partial":
		emoji = ":warning:"
	}

	fmt.Fprintf(&sb, "%s Security remediation run for *%s*: %s\n", emoji, report.Org, report.Status)
	fmt.Fprintf(&sb, "Repositories: %d total, %d remediated, %d failed, %d skipped\n",
		report.TotalRepos, report.Successful, report.Failed, report.Skipped)

	if len(report.PRURLs) > 0 {
		sb.WriteString("Pull requests:\n")
		for _, u := range report.PRURLs {
			fmt.Fprintf(&sb, "• %s\n", u)
		}
	}
	if report.Error != "" {
		fmt.Fprintf(&sb, "Error: %s\n", report.Error)
	}

	return strings.TrimRight(sb.String(), "\n")
}
