// Package config provides environment-driven configuration for packagebot.
//
// All configuration is read from environment variables. Credentials are
// required at startup: a missing token is a fatal configuration error, never
// a per-run retryable failure.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds the full packagebot configuration.
type Config struct {
	Temporal TemporalConfig `koanf:"temporal"`
	GitHub   GitHubConfig   `koanf:"github"`
	Agent    AgentConfig    `koanf:"agent"`
	Jira     JiraConfig     `koanf:"jira"`
	Slack    SlackConfig    `koanf:"slack"`
	Plan     PlanConfig     `koanf:"plan"`
}

// TemporalConfig holds Temporal connection settings.
type TemporalConfig struct {
	HostPort  string `koanf:"host_port"`
	Namespace string `koanf:"namespace"`
	TaskQueue string `koanf:"task_queue"`
}

// GitHubConfig holds GitHub credentials and the target organization.
type GitHubConfig struct {
	Token Secret `koanf:"token"`
	Org   string `koanf:"org"`
}

// AgentConfig holds settings for the remediation coding agent.
type AgentConfig struct {
	APIKey       Secret `koanf:"api_key"`
	Model        string `koanf:"model"`
	WorkspaceDir string `koanf:"workspace_dir"`
}

// JiraConfig holds Jira Cloud credentials and the tracking project.
type JiraConfig struct {
	BaseURL    string   `koanf:"base_url"`
	Email      string   `koanf:"email"`
	APIToken   Secret   `koanf:"api_token"`
	ProjectKey string   `koanf:"project_key"`
	Timeout    Duration `koanf:"timeout"`
}

// SlackConfig holds the optional run-report notifier settings.
// Both fields empty disables notification.
type SlackConfig struct {
	Token     Secret `koanf:"token"`
	ChannelID string `koanf:"channel_id"`
}

// PlanConfig holds the remediation plan artifact location.
type PlanConfig struct {
	Dir string `koanf:"dir"`
}

// envKeys maps environment variable names to koanf paths. Variables not
// listed here are ignored.
var envKeys = map[string]string{
	"TEMPORAL_HOST":       "temporal.host_port",
	"TEMPORAL_NAMESPACE":  "temporal.namespace",
	"TEMPORAL_TASK_QUEUE": "temporal.task_queue",
	"GITHUB_TOKEN":        "github.token",
	"GITHUB_ORG":          "github.org",
	"ANTHROPIC_API_KEY":   "agent.api_key",
	"AGENT_MODEL":         "agent.model",
	"AGENT_WORKSPACE_DIR": "agent.workspace_dir",
	"JIRA_BASE_URL":       "jira.base_url",
	"JIRA_EMAIL":          "jira.email",
	"JIRA_API_TOKEN":      "jira.api_token",
	"JIRA_PROJECT_KEY":    "jira.project_key",
	"JIRA_TIMEOUT":        "jira.timeout",
	"SLACK_AUTH_TOKEN":    "slack.token",
	"SLACK_CHANNEL_ID":    "slack.channel_id",
	"PLAN_DIR":            "plan.dir",
}

// NewDefaultConfig returns config with defaults applied.
func NewDefaultConfig() *Config {
	return &Config{
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "packagebot-task-queue",
		},
		Agent: AgentConfig{
			Model:        "claude-sonnet-4-5",
			WorkspaceDir: "workspace",
		},
		Jira: JiraConfig{
			ProjectKey: "SEC",
			Timeout:    Duration(30 * time.Second),
		},
		Plan: PlanConfig{
			Dir: "remediation-plan",
		},
	}
}

// Load reads configuration from the environment on top of defaults.
func Load() (*Config, error) {
	cfg := NewDefaultConfig()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(key string) string {
		if path, ok := envKeys[strings.ToUpper(key)]; ok {
			return path
		}
		return "" // skip unknown variables
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required credentials are present. Slack is optional;
// everything else is mandatory because every pipeline stage needs it.
func (c *Config) Validate() error {
	var missing []string

	if c.GitHub.Org == "" {
		missing = append(missing, "GITHUB_ORG")
	}
	if !c.GitHub.Token.IsSet() {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if !c.Agent.APIKey.IsSet() {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if c.Jira.BaseURL == "" {
		missing = append(missing, "JIRA_BASE_URL")
	}
	if c.Jira.Email == "" {
		missing = append(missing, "JIRA_EMAIL")
	}
	if !c.Jira.APIToken.IsSet() {
		missing = append(missing, "JIRA_API_TOKEN")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SlackEnabled reports whether the optional run-report notifier is configured.
func (c *Config) SlackEnabled() bool {
	return c.Slack.Token.IsSet() && c.Slack.ChannelID != ""
}
