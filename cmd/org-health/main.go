package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var log = slog.New(slog.NewJSONHandler(os.Stdout, nil))

var rootCmd = &cobra.Command{
	Use:   "org-health",
	Short: "Health checks for a GitHub organisation",
	Long: `Health checks for a GitHub organisation.

Credentials are read from the environment, or from a .env file when present:
GITHUB_TOKEN (or GITHUB_APP_ID, GITHUB_APP_INSTALLATION_ID and
GITHUB_APP_PRIVATE_KEY), SLACK_BOT_TOKEN, and for the dormant user report
AZURE_APP_TENANT_ID, AZURE_APP_CLIENT_ID and AZURE_APP_CLIENT_SECRET.
The quota alert reads GITHUB_ORGANIZATION, GITHUB_ENTERPRISE and
QUOTA_SLACK_CHANNEL when the matching flags are not set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error("Command failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

// isFeatureEnabled checks if a feature toggle is enabled via environment variable
// Returns true if the environment variable is set to "true", "yes", "1", or "on" (case insensitive)
func isFeatureEnabled(envVarName string) bool {
	value := strings.ToLower(os.Getenv(envVarName))
	return value == "true" || value == "yes" || value == "1" || value == "on"
}
