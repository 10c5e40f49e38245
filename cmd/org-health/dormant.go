package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/navikt/github-team-auditor/internal/dormant"
	"github.com/navikt/github-team-auditor/internal/github"
	"github.com/navikt/github-team-auditor/internal/msgraph"
)

var organisation string

var dormantUsersCmd = &cobra.Command{
	Use:   "dormant-users",
	Short: "List organisation members without an active directory account",
	Args:  cobra.NoArgs,
	RunE:  runDormantUsers,
}

func init() {
	dormantUsersCmd.Flags().StringVar(&organisation, "org", "", "GitHub organisation to check (default $GITHUB_ORGANIZATION)")
	rootCmd.AddCommand(dormantUsersCmd)
}

func runDormantUsers(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	org := valueOrEnv(organisation, "GITHUB_ORGANIZATION")
	if org == "" {
		return fmt.Errorf("missing organisation: set --org or GITHUB_ORGANIZATION")
	}

	restClient, err := github.NewRestClient(ctx, org)
	if err != nil {
		return fmt.Errorf("failed to initialize GitHub client: %w", err)
	}
	graphQLClient, err := github.NewGraphQLClient(ctx, org)
	if err != nil {
		return fmt.Errorf("failed to initialize GitHub GraphQL client: %w", err)
	}
	identityClient, err := msgraph.CreateIdentityGraphClient()
	if err != nil {
		return fmt.Errorf("failed to initialize MS Graph client: %w", err)
	}

	report, err := dormant.Identify(ctx, restClient, graphQLClient, identityClient)
	if err != nil {
		return err
	}

	for login, lookupErr := range report.LookupErrors {
		log.Warn("Failed to fetch SAML nameID for user", slog.String("user", login), slog.Any("error", lookupErr))
	}
	if len(report.Unlinked) > 0 {
		log.Warn("Users have no SAML identity", slog.Any("users", report.Unlinked))
	}
	log.Info("Identified dormant users",
		slog.Int("dormant", len(report.Dormant)),
		slog.Int("unlinked", len(report.Unlinked)))

	out := cmd.OutOrStdout()
	for _, login := range report.Dormant {
		fmt.Fprintln(out, login)
	}
	return nil
}
