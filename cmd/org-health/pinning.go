package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/navikt/github-team-auditor/internal/pinning"
)

var errPinnedVersionsFound = errors.New("workflows reference actions by version tag")

var (
	workflowDir    string
	trustedOwners  []string
	failOnFindings bool
)

var versionPinningCmd = &cobra.Command{
	Use:   "version-pinning",
	Short: "List workflow steps that reference actions by version tag",
	Long: `Walks the workflow directory and lists every 'uses:' reference pinned to a
version tag (@v...) rather than a commit SHA. Actions owned by a trusted
owner are not listed.`,
	Args: cobra.NoArgs,
	RunE: runVersionPinning,
}

func init() {
	versionPinningCmd.Flags().StringVar(&workflowDir, "dir", pinning.DefaultWorkflowDir, "directory containing the workflows")
	versionPinningCmd.Flags().StringSliceVar(&trustedOwners, "trusted-owner", []string{"actions"}, "owners whose actions may be referenced by tag")
	versionPinningCmd.Flags().BoolVar(&failOnFindings, "fail-on-findings", false, "exit with an error when a reference is found")
	rootCmd.AddCommand(versionPinningCmd)
}

func runVersionPinning(cmd *cobra.Command, _ []string) error {
	checker := &pinning.Checker{TrustedOwners: trustedOwners}
	findings, err := checker.CheckDir(workflowDir)
	if err != nil {
		return err
	}
	log.Info("Checked workflows for version pinning",
		slog.String("dir", workflowDir),
		slog.Int("findings", len(findings)))

	printFindings(cmd.OutOrStdout(), findings)
	if failOnFindings && len(findings) > 0 {
		return errPinnedVersionsFound
	}
	return nil
}

func printFindings(out io.Writer, findings []pinning.Finding) {
	if len(findings) == 0 {
		fmt.Fprintln(out, "No workflows found with pinned versions (@v).")
		return
	}
	fmt.Fprintln(out, "Found workflows with pinned versions (@v):")
	for _, f := range findings {
		fmt.Fprintln(out, f)
	}
}
