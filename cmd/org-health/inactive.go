package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/navikt/github-team-auditor/internal/audit"
	"github.com/navikt/github-team-auditor/internal/config"
	"github.com/navikt/github-team-auditor/internal/github"
	"github.com/navikt/github-team-auditor/internal/policy"
	"github.com/navikt/github-team-auditor/internal/slack"
)

var errTeamsFailed = errors.New("one or more teams could not be fully audited")

var configPath string

var inactiveUsersCmd = &cobra.Command{
	Use:   "inactive-users",
	Short: "Report and remove inactive members of configured GitHub teams",
	Long: `Checks every team in the configuration file for members without commits
in the team's repositories during the configured number of months.

Depending on the team's settings, inactive members are removed from the team,
and a summary is posted to the team's Slack channel. Set DRY_RUN=true to only
log what would happen.`,
	Args: cobra.NoArgs,
	RunE: runInactiveUsers,
}

func init() {
	inactiveUsersCmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "path to the team configuration file")
	rootCmd.AddCommand(inactiveUsersCmd)
}

func runInactiveUsers(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	window, err := policy.NewInactivityWindow(cfg.InactivityMonths)
	if err != nil {
		return err
	}
	log.Info("Loaded configuration",
		slog.String("organisation", cfg.OrganisationName),
		slog.Int("inactivityMonths", window.Months()),
		slog.Int("teams", len(cfg.Teams)))

	dryRun := isFeatureEnabled("DRY_RUN")
	if dryRun {
		log.Info("Dry run is enabled, no team membership will be changed and no message sent")
	}

	githubClient, err := github.NewRestClient(ctx, cfg.OrganisationName)
	if err != nil {
		return fmt.Errorf("failed to initialize GitHub client: %w", err)
	}

	coordinator := &audit.Coordinator{
		Source: githubClient,
		Logger: log,
		DryRun: dryRun,
	}
	if !dryRun {
		slackClient, err := slack.NewSlackClient()
		if err != nil {
			return fmt.Errorf("failed to initialize Slack client: %w", err)
		}
		coordinator.Notifier = slackClient
	}

	outcomes := coordinator.Run(ctx, cfg.Teams, window)
	if audit.HasErrors(outcomes) {
		return errTeamsFailed
	}
	return nil
}
