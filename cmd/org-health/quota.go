package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/navikt/github-team-auditor/internal/github"
	"github.com/navikt/github-team-auditor/internal/quota"
	"github.com/navikt/github-team-auditor/internal/slack"
)

var (
	quotaEnterprise      string
	quotaChannel         string
	quotaIncludedMinutes float64
)

var quotaAlertCmd = &cobra.Command{
	Use:   "quota-alert",
	Short: "Alert on Slack when the GitHub Actions minutes quota runs low",
	Long: `Sums the GitHub Actions minutes used by the organisation, or by every
organisation in the enterprise when --enterprise is set, and posts a warning
to Slack when the share of the quota used reaches the threshold stored in the
organisation variable GHA_MINUTES_QUOTA_THRESHOLD. The threshold is raised
after every alert and reset on the first day of the month.`,
	Args: cobra.NoArgs,
	RunE: runQuotaAlert,
}

func init() {
	quotaAlertCmd.Flags().StringVar(&organisation, "org", "", "GitHub organisation storing the threshold (default $GITHUB_ORGANIZATION)")
	quotaAlertCmd.Flags().StringVar(&quotaEnterprise, "enterprise", "", "GitHub enterprise whose organisations are summed (default $GITHUB_ENTERPRISE)")
	quotaAlertCmd.Flags().StringVar(&quotaChannel, "channel", "", "Slack channel to alert (default $QUOTA_SLACK_CHANNEL)")
	quotaAlertCmd.Flags().Float64Var(&quotaIncludedMinutes, "included-minutes", quota.DefaultIncludedMinutes, "Actions minutes included in the plan each month")
	rootCmd.AddCommand(quotaAlertCmd)
}

func runQuotaAlert(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	org := valueOrEnv(organisation, "GITHUB_ORGANIZATION")
	if org == "" {
		return fmt.Errorf("missing organisation: set --org or GITHUB_ORGANIZATION")
	}
	channel := valueOrEnv(quotaChannel, "QUOTA_SLACK_CHANNEL")
	if channel == "" {
		return fmt.Errorf("missing Slack channel: set --channel or QUOTA_SLACK_CHANNEL")
	}

	restClient, err := github.NewRestClient(ctx, org)
	if err != nil {
		return fmt.Errorf("failed to initialize GitHub client: %w", err)
	}

	orgs := []string{org}
	if enterprise := valueOrEnv(quotaEnterprise, "GITHUB_ENTERPRISE"); enterprise != "" {
		graphQLClient, err := github.NewGraphQLClient(ctx, org)
		if err != nil {
			return fmt.Errorf("failed to initialize GitHub GraphQL client: %w", err)
		}
		orgs, err = graphQLClient.EnterpriseOrganisations(ctx, enterprise)
		if err != nil {
			return err
		}
		log.Info("Listed enterprise organisations", slog.String("enterprise", enterprise), slog.Int("organisations", len(orgs)))
	}

	slackClient, err := slack.NewSlackClient()
	if err != nil {
		return fmt.Errorf("failed to initialize Slack client: %w", err)
	}

	alerter := &quota.Alerter{
		Billing:         restClient,
		Thresholds:      restClient,
		Notifier:        slackClient,
		Channel:         channel,
		Logger:          log,
		IncludedMinutes: quotaIncludedMinutes,
	}
	result, err := alerter.Check(ctx, orgs)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%.1f%% of the GitHub Actions minutes quota used (threshold %d%%)\n",
		result.PercentageUsed, result.Threshold)
	return nil
}

// valueOrEnv returns value, or the environment variable key when value is
// empty.
func valueOrEnv(value, key string) string {
	if value != "" {
		return value
	}
	return os.Getenv(key)
}
