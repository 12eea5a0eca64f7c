package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults apply when environment is empty", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
		assert.Equal(t, "packagebot-task-queue", cfg.Temporal.TaskQueue)
		assert.Equal(t, "remediation-plan", cfg.Plan.Dir)
		assert.Equal(t, "SEC", cfg.Jira.ProjectKey)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("TEMPORAL_HOST", "temporal.internal:7233")
		t.Setenv("GITHUB_ORG", "acme-corp")
		t.Setenv("GITHUB_TOKEN", "ghp_test")
		t.Setenv("PLAN_DIR", "/var/lib/packagebot/plans")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "temporal.internal:7233", cfg.Temporal.HostPort)
		assert.Equal(t, "acme-corp", cfg.GitHub.Org)
		assert.Equal(t, "ghp_test", cfg.GitHub.Token.Value())
		assert.Equal(t, "/var/lib/packagebot/plans", cfg.Plan.Dir)
	})

	t.Run("durations parse from the environment", func(t *testing.T) {
		t.Setenv("JIRA_TIMEOUT", "45s")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 45*time.Second, cfg.Jira.Timeout.Duration())
	})

	t.Run("jira timeout defaults to 30s", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.Jira.Timeout.Duration())
	})

	t.Run("unknown variables are ignored", func(t *testing.T) {
		t.Setenv("SOME_UNRELATED_VAR", "value")

		_, err := Load()
		require.NoError(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := NewDefaultConfig()
		cfg.GitHub.Org = "acme-corp"
		cfg.GitHub.Token = "ghp_test"
		cfg.Agent.APIKey = "sk-ant-test"
		cfg.Jira.BaseURL = "https://acme.atlassian.net"
		cfg.Jira.Email = "bot@acme.example"
		cfg.Jira.APIToken = "jira-token"
		return cfg
	}

	t.Run("complete config passes", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("missing org fails", func(t *testing.T) {
		cfg := valid()
		cfg.GitHub.Org = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GITHUB_ORG")
	})

	t.Run("missing credentials are all reported", func(t *testing.T) {
		cfg := valid()
		cfg.GitHub.Token = ""
		cfg.Agent.APIKey = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GITHUB_TOKEN")
		assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	})

	t.Run("slack is optional", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
		assert.False(t, cfg.SlackEnabled())

		cfg.Slack.Token = "xoxb-test"
		cfg.Slack.ChannelID = "C01234567"
		assert.True(t, cfg.SlackEnabled())
	})
}

func TestDuration(t *testing.T) {
	t.Run("parses duration strings", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.UnmarshalText([]byte("2m30s")))
		assert.Equal(t, 150*time.Second, d.Duration())
	})

	t.Run("rejects negative durations", func(t *testing.T) {
		var d Duration
		require.Error(t, d.UnmarshalText([]byte("-5s")))
	})

	t.Run("round trips through text", func(t *testing.T) {
		d := Duration(90 * time.Second)
		text, err := d.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, "1m30s", string(text))
	})
}

func TestSecret(t *testing.T) {
	t.Run("redacts in string formatting", func(t *testing.T) {
		s := Secret("super-secret")
		assert.Equal(t, "[REDACTED]", s.String())
		assert.Equal(t, "Secret([REDACTED])", s.GoString())
		assert.Equal(t, "super-secret", s.Value())
	})

	t.Run("redacts in JSON", func(t *testing.T) {
		s := Secret("super-secret")
		data, err := s.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `"[REDACTED]"`, string(data))
	})

	t.Run("empty secret stays empty", func(t *testing.T) {
		s := Secret("")
		assert.Equal(t, "", s.String())
		assert.False(t, s.IsSet())
	})
}
