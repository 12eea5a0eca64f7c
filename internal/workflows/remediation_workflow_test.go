package workflows

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/fyrsmithlabs/packagebot/internal/plan"
)

func testRepoPlan() plan.RepositoryPlan {
	return plan.RepositoryPlan{
		Name:    "web-app",
		HTMLURL: "https://github.com/acme/web-app",
		SecurityAlerts: []plan.PackageSummary{
			{
				Ecosystem:     "npm",
				Package:       "lodash",
				Severity:      "high",
				TargetVersion: "4.17.21",
			},
		},
	}
}

func remediationInput() RepoRemediationInput {
	return RepoRemediationInput{
		Org:        "acme",
		Repository: testRepoPlan(),
	}
}

// TestRepoRemediationWorkflow exercises the three-stage saga and its
// status model.
func TestRepoRemediationWorkflow(t *testing.T) {
	newEnv := func() (*testsuite.TestWorkflowEnvironment, *Activities) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestWorkflowEnvironment()
		env.RegisterWorkflow(RepoRemediationWorkflow)
		a := &Activities{}
		env.RegisterActivity(a.RemediateRepository)
		env.RegisterActivity(a.OpenPullRequest)
		env.RegisterActivity(a.CreateTicket)
		return env, a
	}

	t.Run("all stages succeed", func(t *testing.T) {
		env, a := newEnv()

		env.OnActivity(a.RemediateRepository, mock.Anything, mock.Anything).Return(&RemediateRepoResult{
			BranchName:          "packagebot/security-updates",
			CommitHash:          "abc1234",
			MajorVersionUpdates: []string{"lodash 3.x -> 4.x"},
			TotalCostUSD:        0.42,
			NumTurns:            9,
		}, nil)
		env.OnActivity(a.OpenPullRequest, mock.Anything, mock.Anything).Return(&OpenPullRequestResult{
			PRURL:    "https://github.com/acme/web-app/pull/7",
			PRNumber: 7,
		}, nil)
		env.OnActivity(a.CreateTicket, mock.Anything, mock.Anything).Return(&CreateTicketResult{
			TicketKey: "SEC-42",
			TicketURL: "https://acme.atlassian.net/browse/SEC-42",
		}, nil)

		env.ExecuteWorkflow(RepoRemediationWorkflow, remediationInput())

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var outcome RepoOutcome
		require.NoError(t, env.GetWorkflowResult(&outcome))
		assert.Equal(t, StatusSuccess, outcome.Status)
		assert.Equal(t, "packagebot/security-updates", outcome.BranchName)
		assert.Equal(t, "https://github.com/acme/web-app/pull/7", outcome.PRURL)
		assert.Equal(t, 7, outcome.PRNumber)
		assert.Equal(t, "SEC-42", outcome.TicketKey)
		assert.Equal(t, []string{"lodash 3.x -> 4.x"}, outcome.MajorVersionUpdates)
		assert.Equal(t, 0.42, outcome.TotalCostUSD)
		assert.Empty(t, outcome.Error)
		env.AssertExpectations(t)
	})

	t.Run("remediation failure short circuits", func(t *testing.T) {
		env, a := newEnv()

		env.OnActivity(a.RemediateRepository, mock.Anything, mock.Anything).Return(nil,
			temporal.NewNonRetryableApplicationError("agent produced no remediation branch", "NoBranch", nil))

		env.ExecuteWorkflow(RepoRemediationWorkflow, remediationInput())

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var outcome RepoOutcome
		require.NoError(t, env.GetWorkflowResult(&outcome))
		assert.Equal(t, StatusFailure, outcome.Status)
		assert.Contains(t, outcome.Error, "remediation failed")

		// Stages B and C never run after an A failure.
		env.AssertNotCalled(t, "OpenPullRequest", mock.Anything, mock.Anything)
		env.AssertNotCalled(t, "CreateTicket", mock.Anything, mock.Anything)
	})

	t.Run("pull request failure downgrades to partial", func(t *testing.T) {
		env, a := newEnv()

		env.OnActivity(a.RemediateRepository, mock.Anything, mock.Anything).Return(&RemediateRepoResult{
			BranchName: "packagebot/security-updates",
		}, nil)
		env.OnActivity(a.OpenPullRequest, mock.Anything, mock.Anything).Return(nil,
			temporal.NewNonRetryableApplicationError("validation failed", "InvalidInput", nil))

		env.ExecuteWorkflow(RepoRemediationWorkflow, remediationInput())

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var outcome RepoOutcome
		require.NoError(t, env.GetWorkflowResult(&outcome))
		assert.Equal(t, StatusPartial, outcome.Status)
		assert.Equal(t, "packagebot/security-updates", outcome.BranchName)
		assert.Contains(t, outcome.Error, "pull request creation failed")

		env.AssertNotCalled(t, "CreateTicket", mock.Anything, mock.Anything)
	})

	t.Run("ticket failure never downgrades success", func(t *testing.T) {
		env, a := newEnv()

		env.OnActivity(a.RemediateRepository, mock.Anything, mock.Anything).Return(&RemediateRepoResult{
			BranchName: "packagebot/security-updates",
		}, nil)
		env.OnActivity(a.OpenPullRequest, mock.Anything, mock.Anything).Return(&OpenPullRequestResult{
			PRURL:    "https://github.com/acme/web-app/pull/7",
			PRNumber: 7,
		}, nil)
		env.OnActivity(a.CreateTicket, mock.Anything, mock.Anything).Return(nil, errors.New("jira is down"))

		env.ExecuteWorkflow(RepoRemediationWorkflow, remediationInput())

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var outcome RepoOutcome
		require.NoError(t, env.GetWorkflowResult(&outcome))
		assert.Equal(t, StatusSuccess, outcome.Status)
		assert.Empty(t, outcome.Error)
		assert.Contains(t, outcome.TicketError, "ticket creation failed")
		assert.Empty(t, outcome.TicketKey)
	})

	t.Run("missing repository name fails without running stages", func(t *testing.T) {
		env, _ := newEnv()

		env.ExecuteWorkflow(RepoRemediationWorkflow, RepoRemediationInput{Org: "acme"})

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var outcome RepoOutcome
		require.NoError(t, env.GetWorkflowResult(&outcome))
		assert.Equal(t, StatusFailure, outcome.Status)
		assert.Equal(t, "missing repository name", outcome.Error)
		env.AssertNotCalled(t, "RemediateRepository", mock.Anything, mock.Anything)
	})

	t.Run("idempotency key derives from execution and repo", func(t *testing.T) {
		env, a := newEnv()

		env.OnActivity(a.RemediateRepository, mock.Anything, mock.Anything).Return(&RemediateRepoResult{
			BranchName: "packagebot/security-updates",
		}, nil)

		var prKey, ticketKey string
		env.OnActivity(a.OpenPullRequest, mock.Anything, mock.MatchedBy(func(input OpenPullRequestInput) bool {
			prKey = input.IdempotencyKey
			return true
		})).Return(&OpenPullRequestResult{PRURL: "https://github.com/acme/web-app/pull/7", PRNumber: 7}, nil)
		env.OnActivity(a.CreateTicket, mock.Anything, mock.MatchedBy(func(input CreateTicketInput) bool {
			ticketKey = input.IdempotencyKey
			return true
		})).Return(&CreateTicketResult{TicketKey: "SEC-1"}, nil)

		env.ExecuteWorkflow(RepoRemediationWorkflow, remediationInput())

		require.True(t, env.IsWorkflowCompleted())
		assert.NotEmpty(t, prKey)
		assert.Equal(t, prKey, ticketKey)
		assert.Contains(t, prKey, "web-app")
	})
}
