package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	gh "github.com/google/go-github/v72/github"
	"github.com/shurcooL/githubv4"
)

// QuotaThresholdVariable is the organisation Actions variable holding the
// percentage of used Actions minutes that triggers the next quota alert.
const QuotaThresholdVariable = "GHA_MINUTES_QUOTA_THRESHOLD"

// actionsBilling is the body of GET /orgs/{org}/settings/billing/actions.
type actionsBilling struct {
	TotalMinutesUsed     float64 `json:"total_minutes_used"`
	TotalPaidMinutesUsed float64 `json:"total_paid_minutes_used"`
	IncludedMinutes      float64 `json:"included_minutes"`
}

// ActionsMinutesUsed returns the GitHub Actions minutes org used in the
// current billing cycle.
func (c *RestClient) ActionsMinutesUsed(ctx context.Context, org string) (float64, error) {
	req, err := c.client.NewRequest(http.MethodGet, fmt.Sprintf("orgs/%s/settings/billing/actions", org), nil)
	if err != nil {
		return 0, err
	}
	var billing actionsBilling
	if _, err := c.client.Do(ctx, req, &billing); err != nil {
		return 0, fmt.Errorf("failed to get Actions billing of organisation %s: %w", org, err)
	}
	log.Info("Fetched Actions billing",
		slog.String("organisation", org),
		slog.Float64("minutesUsed", billing.TotalMinutesUsed))
	return billing.TotalMinutesUsed, nil
}

// QuotaThreshold reads the alert threshold from the organisation's Actions
// variables. found is false when the variable does not exist.
func (c *RestClient) QuotaThreshold(ctx context.Context) (threshold int, found bool, err error) {
	variable, _, err := c.client.Actions.GetOrgVariable(ctx, c.org, QuotaThresholdVariable)
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get variable %s of organisation %s: %w", QuotaThresholdVariable, c.org, err)
	}
	threshold, err = strconv.Atoi(variable.Value)
	if err != nil {
		return 0, false, fmt.Errorf("invalid value %q of variable %s: %w", variable.Value, QuotaThresholdVariable, err)
	}
	return threshold, true, nil
}

// SetQuotaThreshold stores the alert threshold, creating the variable when it
// does not exist yet.
func (c *RestClient) SetQuotaThreshold(ctx context.Context, threshold int) error {
	variable := &gh.ActionsVariable{
		Name:       QuotaThresholdVariable,
		Value:      strconv.Itoa(threshold),
		Visibility: gh.Ptr("private"),
	}
	_, err := c.client.Actions.UpdateOrgVariable(ctx, c.org, variable)
	if isNotFound(err) {
		_, err = c.client.Actions.CreateOrgVariable(ctx, c.org, variable)
	}
	if err != nil {
		return fmt.Errorf("failed to set variable %s of organisation %s: %w", QuotaThresholdVariable, c.org, err)
	}
	log.Info("Updated quota threshold", slog.String("organisation", c.org), slog.Int("threshold", threshold))
	return nil
}

func isNotFound(err error) bool {
	var errResp *gh.ErrorResponse
	return errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound
}

// EnterpriseOrganisations returns the logins of every organisation in the
// enterprise with the given slug.
func (c *GraphQLClient) EnterpriseOrganisations(ctx context.Context, enterprise string) ([]string, error) {
	var q struct {
		Enterprise struct {
			Organizations struct {
				Nodes []struct {
					Login string
				}
				PageInfo struct {
					EndCursor   githubv4.String
					HasNextPage bool
				}
			} `graphql:"organizations(first: 100, after: $cursor)"`
		} `graphql:"enterprise(slug: $slug)"`
	}
	variables := map[string]interface{}{
		"slug":   githubv4.String(enterprise),
		"cursor": (*githubv4.String)(nil),
	}

	var logins []string
	for {
		if err := c.client.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to list organisations of enterprise %s: %w", enterprise, err)
		}
		for _, node := range q.Enterprise.Organizations.Nodes {
			logins = append(logins, node.Login)
		}
		if !q.Enterprise.Organizations.PageInfo.HasNextPage {
			return logins, nil
		}
		variables["cursor"] = githubv4.NewString(q.Enterprise.Organizations.PageInfo.EndCursor)
	}
}
