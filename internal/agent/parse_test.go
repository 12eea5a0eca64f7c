package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	t.Run("decodes bare json", func(t *testing.T) {
		res, err := parseResult(`{"branch_name": "packagebot/security-updates", "commit_hash": "abc1234", "num_turns": 12, "total_cost_usd": 0.42}`)
		require.NoError(t, err)
		assert.Equal(t, "packagebot/security-updates", res.BranchName)
		assert.Equal(t, "abc1234", res.CommitHash)
		assert.Equal(t, 12, res.NumTurns)
		assert.Equal(t, 0.42, res.TotalCostUSD)
	})

	t.Run("decodes fenced json", func(t *testing.T) {
		text := "Here is the result:\n```json\n{\"branch_name\": \"packagebot/security-updates\", \"major_version_updates\": [\"lodash 3.x -> 4.x\"]}\n```\n"
		res, err := parseResult(text)
		require.NoError(t, err)
		assert.Equal(t, "packagebot/security-updates", res.BranchName)
		assert.Equal(t, []string{"lodash 3.x -> 4.x"}, res.MajorVersionUpdates)
	})

	t.Run("decodes json embedded in prose", func(t *testing.T) {
		text := `All done. {"branch_name": "packagebot/security-updates", "packages_updated": [{"name": "lodash", "to_version": "4.17.21"}]} Let me know if anything else is needed.`
		res, err := parseResult(text)
		require.NoError(t, err)
		require.Len(t, res.PackagesUpdated, 1)
		assert.Equal(t, "lodash", res.PackagesUpdated[0].Name)
	})

	t.Run("scrapes prose fallback", func(t *testing.T) {
		text := "Remediation complete.\nbranch_name: packagebot/security-updates\ncommit_hash: deadbeefcafe\n"
		res, err := parseResult(text)
		require.NoError(t, err)
		assert.Equal(t, "packagebot/security-updates", res.BranchName)
		assert.Equal(t, "deadbeefcafe", res.CommitHash)
	})

	t.Run("fails without a branch", func(t *testing.T) {
		_, err := parseResult("The repository could not be cloned.")
		require.Error(t, err)
	})

	t.Run("json without branch falls through to error", func(t *testing.T) {
		_, err := parseResult(`{"summary": "nothing to do"}`)
		require.Error(t, err)
	})
}

func TestWorkspacePath(t *testing.T) {
	a := WorkspacePath("workspace", "web-app")
	b := WorkspacePath("workspace", "web-app")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "web-app-")
}

func TestBuildPrompt(t *testing.T) {
	req := RemediateRequest{
		Org:          "acme",
		WorkspaceDir: "workspace/web-app-1234",
	}
	req.Repository.Name = "web-app"

	prompt, err := buildPrompt(req)
	require.NoError(t, err)
	assert.Contains(t, prompt, "acme/web-app")
	assert.Contains(t, prompt, "workspace/web-app-1234")
	assert.Contains(t, prompt, `"branch_name"`)
}
