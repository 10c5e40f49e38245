package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/navikt/github-team-auditor/internal/policy"
)

var errNoRemovalResult = errors.New("no removal result reported for user")

// Remediator applies a team's removal policy to its inactive members and
// composes the team's notification.
type Remediator struct {
	Source SourceControlService
	Window policy.InactivityWindow
}

// Remediate removes or flags the inactive users of the policy's team.
//
// When the policy removes users, every user is attempted; users whose removal
// failed are reported as flagged and recorded in the outcome's RemovalErr.
func (r *Remediator) Remediate(ctx context.Context, p policy.TeamPolicy, inactive []ClassifiedUser) AuditOutcome {
	outcome := AuditOutcome{
		Team:    p.Name(),
		Removed: []string{},
		Flagged: []string{},
	}
	if channel, ok := p.NotificationChannel(); ok {
		outcome.Channel = channel
	}
	if len(inactive) == 0 {
		return outcome
	}

	users := logins(inactive)
	var failed []string
	if p.RemoveInactiveUsers() {
		results := r.Source.RemoveTeamMembers(ctx, p.GithubTeam(), users)
		removalErr := &RemovalError{Team: p.Name(), Attempted: len(users), Failed: map[string]error{}}
		for _, user := range users {
			err, ok := results[user]
			if !ok {
				err = errNoRemovalResult
			}
			if err != nil {
				removalErr.Failed[user] = err
				outcome.Flagged = append(outcome.Flagged, user)
				failed = append(failed, user)
				continue
			}
			outcome.Removed = append(outcome.Removed, user)
		}
		if len(removalErr.Failed) > 0 {
			outcome.RemovalErr = removalErr
		}
	} else {
		outcome.Flagged = append(outcome.Flagged, users...)
	}

	message, err := ComposeMessage(Summary{
		Team:           p.Name(),
		Months:         r.Window.Months(),
		Removed:        outcome.Removed,
		Flagged:        outcome.Flagged,
		FailedRemovals: failed,
	})
	if err != nil {
		outcome.Err = fmt.Errorf("failed to compose message for team %q: %w", p.Name(), err)
		return outcome
	}
	outcome.Message = message
	return outcome
}
