// Package audit finds inactive members of GitHub teams, removes them when the
// team's policy asks for it and tells the team about it on Slack.
package audit

import (
	"context"
)

// SourceControlService is the source control platform holding the teams.
type SourceControlService interface {
	// ListInactiveTeamMembers returns the members of team without activity
	// in any of its repositories, except ignoredRepositories, over the last
	// months.
	ListInactiveTeamMembers(ctx context.Context, team string, ignoredRepositories []string, months int) ([]string, error)
	// RemoveTeamMembers removes every user from team. The result holds one
	// entry per user: nil when the removal succeeded, the failure otherwise.
	RemoveTeamMembers(ctx context.Context, team string, users []string) map[string]error
}

// NotificationService delivers messages to chat channels.
type NotificationService interface {
	SendMessage(ctx context.Context, channel, text string) error
}

// Status is the classification of a team member.
type Status int

const (
	Active Status = iota
	Inactive
)

func (s Status) String() string {
	if s == Inactive {
		return "inactive"
	}
	return "active"
}

// ClassifiedUser is a team member and its classification.
type ClassifiedUser struct {
	Login  string
	Status Status
}

// AuditOutcome is the result of auditing one team.
type AuditOutcome struct {
	Team string
	// Removed holds the users removed from the team, in classification order.
	Removed []string
	// Flagged holds inactive users that are still members of the team.
	Flagged []string
	// Message is the rendered summary; empty when nothing was found.
	Message string
	// Channel is where Message is sent; empty when the team has no channel.
	Channel    string
	Dispatched bool

	// Err is set when the team could not be audited at all.
	Err error
	// RemovalErr is a *RemovalError when one or more removals failed.
	RemovalErr error
	// NotificationErr is a *NotificationError when the message could not be sent.
	NotificationErr error
}

// Failed reports whether the team could not be audited.
func (o AuditOutcome) Failed() bool {
	return o.Err != nil
}

// HasErrors reports whether any part of the team's audit went wrong.
func (o AuditOutcome) HasErrors() bool {
	return o.Err != nil || o.RemovalErr != nil || o.NotificationErr != nil
}

func logins(users []ClassifiedUser) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Login)
	}
	return out
}
