// Package dormant finds organisation members whose single sign-on identity
// no longer matches an active directory user.
package dormant

import (
	"context"
	"fmt"
	"strings"
)

// MemberLister lists the logins of the organisation's members.
type MemberLister interface {
	ListOrgMembers(ctx context.Context) ([]string, error)
}

// IdentityResolver resolves a login to its SSO e-mail. An empty e-mail means
// the member has no linked identity.
type IdentityResolver interface {
	SSOEmail(ctx context.Context, login string) (string, error)
}

// Directory lists the e-mails of active users in the identity provider.
type Directory interface {
	ListActiveUserEmails(ctx context.Context) ([]string, error)
}

// Report is the result of a dormant user check.
type Report struct {
	// Dormant members have an SSO identity unknown to the directory.
	Dormant []string
	// Unlinked members have no SSO identity at all.
	Unlinked []string
	// LookupErrors holds the members whose identity could not be resolved.
	LookupErrors map[string]error
}

// Identify compares every organisation member with the active directory
// users. Members are reported in organisation order.
func Identify(ctx context.Context, members MemberLister, identities IdentityResolver, directory Directory) (*Report, error) {
	active, err := directory.ListActiveUserEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active directory users: %w", err)
	}
	activeSet := make(map[string]bool, len(active))
	for _, email := range active {
		activeSet[strings.ToLower(email)] = true
	}

	logins, err := members.ListOrgMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organisation members: %w", err)
	}

	report := &Report{LookupErrors: map[string]error{}}
	for _, login := range logins {
		email, err := identities.SSOEmail(ctx, login)
		if err != nil {
			report.LookupErrors[login] = err
			continue
		}
		if email == "" {
			report.Unlinked = append(report.Unlinked, login)
			continue
		}
		if !activeSet[strings.ToLower(email)] {
			report.Dormant = append(report.Dormant, login)
		}
	}
	return report, nil
}
