package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v72/github"
)

const perPage = 100

// ListInactiveTeamMembers returns the members of team that authored no commit
// in any of the team's repositories over the last months. Archived
// repositories and ignoredRepositories are not looked at. Members are
// returned in the order GitHub lists them.
func (c *RestClient) ListInactiveTeamMembers(ctx context.Context, team string, ignoredRepositories []string, months int) ([]string, error) {
	members, err := c.listTeamMembers(ctx, team)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	repos, err := c.listTeamRepos(ctx, team)
	if err != nil {
		return nil, err
	}

	ignored := make(map[string]bool, len(ignoredRepositories))
	for _, repo := range ignoredRepositories {
		ignored[strings.ToLower(repo)] = true
	}

	since := c.now().AddDate(0, -months, 0)
	remaining := make(map[string]bool, len(members))
	for _, member := range members {
		remaining[strings.ToLower(member)] = true
	}

	for _, repo := range repos {
		if len(remaining) == 0 {
			break
		}
		if repo.GetArchived() || ignored[strings.ToLower(repo.GetName())] || ignored[strings.ToLower(repo.GetFullName())] {
			continue
		}
		if pushed := repo.GetPushedAt(); !pushed.IsZero() && pushed.Before(since) {
			continue
		}

		authors, err := c.commitAuthorsSince(ctx, repo, since)
		if err != nil {
			return nil, err
		}
		for author := range authors {
			delete(remaining, author)
		}
	}

	inactive := make([]string, 0, len(remaining))
	for _, member := range members {
		if remaining[strings.ToLower(member)] {
			inactive = append(inactive, member)
		}
	}
	log.Info("Classified team members",
		slog.String("team", team),
		slog.Int("members", len(members)),
		slog.Int("repositories", len(repos)),
		slog.Int("inactive", len(inactive)))
	return inactive, nil
}

// RemoveTeamMembers removes each user from team, continuing past failures.
func (c *RestClient) RemoveTeamMembers(ctx context.Context, team string, users []string) map[string]error {
	results := make(map[string]error, len(users))
	for _, user := range users {
		_, err := c.client.Teams.RemoveTeamMembershipBySlug(ctx, c.org, team, user)
		if err != nil {
			log.Error("Failed to remove user from team",
				slog.String("team", team),
				slog.String("user", user),
				slog.Any("error", err))
			results[user] = fmt.Errorf("failed to remove %s from team %s: %w", user, team, err)
			continue
		}
		log.Info("Removed user from team", slog.String("team", team), slog.String("user", user))
		results[user] = nil
	}
	return results
}

// ListOrgMembers returns the logins of all organisation members.
func (c *RestClient) ListOrgMembers(ctx context.Context) ([]string, error) {
	var logins []string
	opts := &gh.ListMembersOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		users, resp, err := c.client.Organizations.ListMembers(ctx, c.org, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list members of organisation %s: %w", c.org, err)
		}
		for _, u := range users {
			logins = append(logins, u.GetLogin())
		}
		if resp.NextPage == 0 {
			return logins, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *RestClient) listTeamMembers(ctx context.Context, team string) ([]string, error) {
	var logins []string
	opts := &gh.TeamListTeamMembersOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		users, resp, err := c.client.Teams.ListTeamMembersBySlug(ctx, c.org, team, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list members of team %s: %w", team, err)
		}
		for _, u := range users {
			logins = append(logins, u.GetLogin())
		}
		if resp.NextPage == 0 {
			return logins, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *RestClient) listTeamRepos(ctx context.Context, team string) ([]*gh.Repository, error) {
	var repos []*gh.Repository
	opts := &gh.ListOptions{PerPage: perPage}
	for {
		page, resp, err := c.client.Teams.ListTeamReposBySlug(ctx, c.org, team, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories of team %s: %w", team, err)
		}
		repos = append(repos, page...)
		if resp.NextPage == 0 {
			return repos, nil
		}
		opts.Page = resp.NextPage
	}
}

// commitAuthorsSince returns the lower-cased logins of commit authors in repo
// since the given time. Empty repositories have no authors.
func (c *RestClient) commitAuthorsSince(ctx context.Context, repo *gh.Repository, since time.Time) (map[string]bool, error) {
	owner := repo.GetOwner().GetLogin()
	if owner == "" {
		owner = c.org
	}

	authors := make(map[string]bool)
	opts := &gh.CommitsListOptions{Since: since, ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		commits, resp, err := c.client.Repositories.ListCommits(ctx, owner, repo.GetName(), opts)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusConflict {
				return authors, nil
			}
			return nil, fmt.Errorf("failed to list commits of %s/%s: %w", owner, repo.GetName(), err)
		}
		for _, commit := range commits {
			if login := commit.GetAuthor().GetLogin(); login != "" {
				authors[strings.ToLower(login)] = true
			}
		}
		if resp.NextPage == 0 {
			return authors, nil
		}
		opts.Page = resp.NextPage
	}
}
