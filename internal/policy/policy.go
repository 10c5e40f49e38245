// Package policy turns raw team configuration into validated audit policies.
package policy

import (
	"fmt"
	"strings"

	"github.com/navikt/github-team-auditor/internal/config"
)

// ConfigurationError reports a team whose configuration could not be turned
// into a policy.
type ConfigurationError struct {
	Team   string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("team %q: invalid field %q: %s", e.Team, e.Field, e.Reason)
	}
	return fmt.Sprintf("team %q: missing required field %q", e.Team, e.Field)
}

// InactivityWindow is the number of months of activity looked at.
type InactivityWindow int

// NewInactivityWindow validates that months is positive.
func NewInactivityWindow(months int) (InactivityWindow, error) {
	if months <= 0 {
		return 0, fmt.Errorf("inactivity window must be a positive number of months, got %d", months)
	}
	return InactivityWindow(months), nil
}

// Months returns the window length.
func (w InactivityWindow) Months() int {
	return int(w)
}

// TeamPolicy is the audit configuration of one team. It is immutable once built.
type TeamPolicy struct {
	name                string
	githubTeam          string
	removeInactiveUsers bool
	ignoredUsers        map[string]struct{}
	ignoredRepositories []string
	notificationChannel string
}

// Build validates a team's raw settings and returns its policy.
func Build(name string, settings config.TeamSettings) (TeamPolicy, error) {
	if strings.TrimSpace(name) == "" {
		return TeamPolicy{}, &ConfigurationError{Team: name, Field: "name", Reason: "must not be empty"}
	}
	if settings.Invalid != nil {
		return TeamPolicy{}, &ConfigurationError{Team: name, Field: settings.Invalid.Field, Reason: settings.Invalid.Reason}
	}
	if settings.GithubTeam == nil {
		return TeamPolicy{}, &ConfigurationError{Team: name, Field: "github_team"}
	}
	if strings.TrimSpace(*settings.GithubTeam) == "" {
		return TeamPolicy{}, &ConfigurationError{Team: name, Field: "github_team", Reason: "must not be empty"}
	}
	if settings.RemoveFromTeam == nil {
		return TeamPolicy{}, &ConfigurationError{Team: name, Field: "remove_from_team"}
	}

	p := TeamPolicy{
		name:                name,
		githubTeam:          *settings.GithubTeam,
		removeInactiveUsers: *settings.RemoveFromTeam,
		ignoredUsers:        make(map[string]struct{}, len(settings.UsersToIgnore)),
		ignoredRepositories: append([]string(nil), settings.RepositoriesToIgnore...),
	}
	for _, user := range settings.UsersToIgnore {
		p.ignoredUsers[strings.ToLower(user)] = struct{}{}
	}
	if settings.SlackChannel != nil {
		p.notificationChannel = NormalizeChannel(*settings.SlackChannel)
	}
	return p, nil
}

// Built is the result of building one configured team's policy. Err is set
// when the team could not be configured.
type Built struct {
	Team   string
	Policy TeamPolicy
	Err    error
}

// BuildAll builds a policy per entry, in entry order. An entry that fails
// validation, or repeats an earlier team name, carries a ConfigurationError
// and does not prevent the others from being built.
func BuildAll(entries []config.TeamEntry) []Built {
	built := make([]Built, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		b := Built{Team: entry.Name}
		if seen[entry.Name] {
			b.Err = &ConfigurationError{Team: entry.Name, Field: "name", Reason: "duplicate team"}
		} else {
			b.Policy, b.Err = Build(entry.Name, entry.Settings)
		}
		seen[entry.Name] = true
		built = append(built, b)
	}
	return built
}

// NormalizeChannel strips the leading '#' of a Slack channel name.
func NormalizeChannel(channel string) string {
	return strings.TrimLeft(strings.TrimSpace(channel), "#")
}

// Name is the team's identifier in configuration.
func (p TeamPolicy) Name() string { return p.name }

// GithubTeam is the GitHub team slug audited.
func (p TeamPolicy) GithubTeam() string { return p.githubTeam }

// RemoveInactiveUsers reports whether inactive members are removed from the team.
func (p TeamPolicy) RemoveInactiveUsers() bool { return p.removeInactiveUsers }

// IgnoresUser reports whether login is excluded from the audit.
func (p TeamPolicy) IgnoresUser(login string) bool {
	_, ok := p.ignoredUsers[strings.ToLower(login)]
	return ok
}

// IgnoredRepositories returns a copy of the repositories excluded from activity checks.
func (p TeamPolicy) IgnoredRepositories() []string {
	return append([]string(nil), p.ignoredRepositories...)
}

// NotificationChannel returns the Slack channel to notify, if any.
func (p TeamPolicy) NotificationChannel() (string, bool) {
	return p.notificationChannel, p.notificationChannel != ""
}

// WithoutRemoval returns a copy of the policy that only reports inactive members.
func (p TeamPolicy) WithoutRemoval() TeamPolicy {
	p.removeInactiveUsers = false
	return p
}
