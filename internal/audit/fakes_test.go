package audit

import (
	"context"
	"io"
	"log/slog"

	"github.com/navikt/github-team-auditor/internal/config"
	"github.com/navikt/github-team-auditor/internal/policy"
)

type listCall struct {
	Team                string
	IgnoredRepositories []string
	Months              int
}

type removeCall struct {
	Team  string
	Users []string
}

// fakeSource serves canned inactive members per GitHub team.
type fakeSource struct {
	Inactive     map[string][]string
	ListErrors   map[string]error
	RemoveErrors map[string]error
	ListCalls    []listCall
	RemoveCalls  []removeCall
}

func (f *fakeSource) ListInactiveTeamMembers(_ context.Context, team string, ignoredRepositories []string, months int) ([]string, error) {
	f.ListCalls = append(f.ListCalls, listCall{
		Team:                team,
		IgnoredRepositories: append([]string(nil), ignoredRepositories...),
		Months:              months,
	})
	if err := f.ListErrors[team]; err != nil {
		return nil, err
	}
	return f.Inactive[team], nil
}

func (f *fakeSource) RemoveTeamMembers(_ context.Context, team string, users []string) map[string]error {
	f.RemoveCalls = append(f.RemoveCalls, removeCall{Team: team, Users: append([]string(nil), users...)})
	results := make(map[string]error, len(users))
	for _, user := range users {
		results[user] = f.RemoveErrors[user]
	}
	return results
}

// listedTeams returns the GitHub teams the source was asked about, in order.
func (f *fakeSource) listedTeams() []string {
	teams := make([]string, 0, len(f.ListCalls))
	for _, call := range f.ListCalls {
		teams = append(teams, call.Team)
	}
	return teams
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func teamEntry(name string, remove bool, channel string, ignoreUsers ...string) config.TeamEntry {
	settings := config.TeamSettings{
		GithubTeam:     strPtr(name),
		RemoveFromTeam: boolPtr(remove),
		UsersToIgnore:  ignoreUsers,
	}
	if channel != "" {
		settings.SlackChannel = strPtr(channel)
	}
	return config.TeamEntry{Name: name, Settings: settings}
}

func mustPolicy(entry config.TeamEntry) policy.TeamPolicy {
	p, err := policy.Build(entry.Name, entry.Settings)
	if err != nil {
		panic(err)
	}
	return p
}

func inactiveUsers(names ...string) []ClassifiedUser {
	users := make([]ClassifiedUser, 0, len(names))
	for _, name := range names {
		users = append(users, ClassifiedUser{Login: name, Status: Inactive})
	}
	return users
}
