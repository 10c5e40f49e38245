package audit

import (
	"context"
	"strings"

	"github.com/navikt/github-team-auditor/internal/policy"
)

// Classifier finds the inactive members of a team.
type Classifier struct {
	Source SourceControlService
}

// Classify returns the inactive members of the policy's team, in the order
// reported by the source. Ignored users are never returned, whatever the
// source answered. Active members are not materialized.
func (c *Classifier) Classify(ctx context.Context, p policy.TeamPolicy, window policy.InactivityWindow) ([]ClassifiedUser, error) {
	members, err := c.Source.ListInactiveTeamMembers(ctx, p.GithubTeam(), p.IgnoredRepositories(), window.Months())
	if err != nil {
		return nil, &ClassificationError{Team: p.Name(), Err: err}
	}

	inactive := make([]ClassifiedUser, 0, len(members))
	seen := make(map[string]bool, len(members))
	for _, login := range members {
		key := strings.ToLower(login)
		if login == "" || seen[key] || p.IgnoresUser(login) {
			continue
		}
		seen[key] = true
		inactive = append(inactive, ClassifiedUser{Login: login, Status: Inactive})
	}
	return inactive, nil
}
