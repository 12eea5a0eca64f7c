package notify

import (
	"context"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlack struct {
	channelID string
	calls     int
}

func (f *fakeSlack) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.channelID = channelID
	f.calls++
	return channelID, "ts", nil
}

func TestNotifyRun(t *testing.T) {
	fake := &fakeSlack{}
	notifier := &SlackNotifier{client: fake, channelID: "C01234567"}

	err := notifier.NotifyRun(context.Background(), RunReport{
		Org:        "acme",
		Status:     "partial",
		TotalRepos: 3,
		Successful: 2,
		Failed:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "C01234567", fake.channelID)
}

func TestFormatReport(t *testing.T) {
	t.Run("success report", func(t *testing.T) {
		msg := formatReport(RunReport{
			Org:        "acme",
			Status:     "success",
			TotalRepos: 2,
			Successful: 2,
			PRURLs:     []string{"https://github.com/acme/web-app/pull/7"},
		})
		assert.Contains(t, msg, ":white_check_mark:")
		assert.Contains(t, msg, "*acme*")
		assert.Contains(t, msg, "2 remediated")
		assert.Contains(t, msg, "https://github.com/acme/web-app/pull/7")
	})

	t.Run("failure report carries error", func(t *testing.T) {
		msg := formatReport(RunReport{
			Org:    "acme",
			Status: "failure",
			Error:  "plan phase failed",
		})
		assert.Contains(t, msg, ":x:")
		assert.Contains(t, msg, "plan phase failed")
	})

	t.Run("partial report warns", func(t *testing.T) {
		msg := formatReport(RunReport{Org: "acme", Status: "partial"})
		assert.Contains(t, msg, ":warning:")
	})
}
