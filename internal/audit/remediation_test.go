package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemediate_RemovesUsers(t *testing.T) {
	source := &fakeSource{}
	remediator := &Remediator{Source: source, Window: 6}
	p := mustPolicy(teamEntry("platform", true, "#platform-alerts"))

	outcome := remediator.Remediate(context.Background(), p, inactiveUsers("alice", "bob"))

	assert.Equal(t, "platform", outcome.Team)
	assert.Equal(t, []string{"alice", "bob"}, outcome.Removed)
	assert.Empty(t, outcome.Flagged)
	assert.Equal(t, "platform-alerts", outcome.Channel)
	assert.NoError(t, outcome.RemovalErr)
	assert.Contains(t, outcome.Message, "Users Removed:\n- alice\n- bob\n")
	assert.NotContains(t, outcome.Message, "Users Seen but Not Removed")

	require.Len(t, source.RemoveCalls, 1)
	assert.Equal(t, removeCall{Team: "platform", Users: []string{"alice", "bob"}}, source.RemoveCalls[0])
}

func TestRemediate_FlagsUsersWhenRemovalDisabled(t *testing.T) {
	source := &fakeSource{}
	remediator := &Remediator{Source: source, Window: 6}
	p := mustPolicy(teamEntry("data", false, ""))

	outcome := remediator.Remediate(context.Background(), p, inactiveUsers("carol"))

	assert.Empty(t, outcome.Removed)
	assert.Equal(t, []string{"carol"}, outcome.Flagged)
	assert.Empty(t, outcome.Channel)
	assert.Contains(t, outcome.Message, "Users Seen but Not Removed:\n- carol\n")
	assert.NotContains(t, outcome.Message, "Users Removed:")
	assert.Empty(t, source.RemoveCalls)
}

func TestRemediate_NoInactiveUsers(t *testing.T) {
	source := &fakeSource{}
	remediator := &Remediator{Source: source, Window: 6}
	p := mustPolicy(teamEntry("infra", true, "infra"))

	for i := 0; i < 2; i++ {
		outcome := remediator.Remediate(context.Background(), p, nil)
		assert.Empty(t, outcome.Removed)
		assert.Empty(t, outcome.Flagged)
		assert.Empty(t, outcome.Message)
		assert.False(t, outcome.HasErrors())
	}
	assert.Empty(t, source.RemoveCalls)
}

func TestRemediate_PartialRemovalFailure(t *testing.T) {
	source := &fakeSource{RemoveErrors: map[string]error{"bob": errors.New("404 Not Found")}}
	remediator := &Remediator{Source: source, Window: 12}
	p := mustPolicy(teamEntry("platform", true, "platform-alerts"))

	outcome := remediator.Remediate(context.Background(), p, inactiveUsers("alice", "bob", "carol"))

	assert.Equal(t, []string{"alice", "carol"}, outcome.Removed)
	assert.Equal(t, []string{"bob"}, outcome.Flagged)

	var removalErr *RemovalError
	require.True(t, errors.As(outcome.RemovalErr, &removalErr))
	assert.True(t, removalErr.Partial())
	assert.Equal(t, 3, removalErr.Attempted)
	assert.Equal(t, []string{"bob"}, removalErr.Users())
	assert.Contains(t, removalErr.Error(), "404 Not Found")

	assert.Contains(t, outcome.Message, "- alice\n- carol\n")
	assert.Contains(t, outcome.Message, "Users Seen but Not Removed:\n- bob\n")
	assert.Contains(t, outcome.Message, "failed for: bob.")
}

func TestRemediate_AllRemovalsFail(t *testing.T) {
	failure := errors.New("forbidden")
	source := &fakeSource{RemoveErrors: map[string]error{"alice": failure, "bob": failure}}
	remediator := &Remediator{Source: source, Window: 6}
	p := mustPolicy(teamEntry("platform", true, "platform-alerts"))

	outcome := remediator.Remediate(context.Background(), p, inactiveUsers("alice", "bob"))

	assert.Empty(t, outcome.Removed)
	assert.Equal(t, []string{"alice", "bob"}, outcome.Flagged)

	var removalErr *RemovalError
	require.True(t, errors.As(outcome.RemovalErr, &removalErr))
	assert.False(t, removalErr.Partial())
	assert.NotEmpty(t, outcome.Message)
}

func TestRemediate_RemovedAndFlaggedAreDisjoint(t *testing.T) {
	source := &fakeSource{RemoveErrors: map[string]error{"b": errors.New("boom"), "d": errors.New("boom")}}
	remediator := &Remediator{Source: source, Window: 6}
	p := mustPolicy(teamEntry("platform", true, ""))

	outcome := remediator.Remediate(context.Background(), p, inactiveUsers("a", "b", "c", "d"))

	removed := make(map[string]bool)
	for _, u := range outcome.Removed {
		removed[u] = true
	}
	for _, u := range outcome.Flagged {
		assert.False(t, removed[u], "user %s is both removed and flagged", u)
	}
	assert.Len(t, append(outcome.Removed, outcome.Flagged...), 4)
}

func TestRemediate_MissingRemovalResultIsAFailure(t *testing.T) {
	remediator := &Remediator{Source: &silentSource{}, Window: 6}
	p := mustPolicy(teamEntry("platform", true, ""))

	outcome := remediator.Remediate(context.Background(), p, inactiveUsers("alice"))

	assert.Empty(t, outcome.Removed)
	assert.Equal(t, []string{"alice"}, outcome.Flagged)
	assert.Error(t, outcome.RemovalErr)
}

// silentSource reports no removal results at all.
type silentSource struct{ fakeSource }

func (s *silentSource) RemoveTeamMembers(context.Context, string, []string) map[string]error {
	return map[string]error{}
}
