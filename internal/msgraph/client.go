// Package msgraph provides integration with Microsoft Graph API
package msgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	graph "github.com/microsoftgraph/msgraph-sdk-go"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"
)

const (
	pageSize       = 999
	requestTimeout = 5 * time.Minute
)

var log = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// IdentityClient lists the users of the identity provider.
type IdentityClient interface {
	ListActiveUserEmails(ctx context.Context) ([]string, error)
}

// MockIdentityClient implements the IdentityClient interface for testing
type MockIdentityClient struct {
	Emails    []string
	ListError error
}

// ListActiveUserEmails returns the configured e-mails.
func (m *MockIdentityClient) ListActiveUserEmails(_ context.Context) ([]string, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.Emails, nil
}

type graphSDKClient struct {
	graphClient *graph.GraphServiceClient
}

// CreateIdentityGraphClient creates a new MS Graph API client for reading directory users
func CreateIdentityGraphClient() (IdentityClient, error) {
	tenantID := os.Getenv("AZURE_APP_TENANT_ID")
	clientID := os.Getenv("AZURE_APP_CLIENT_ID")
	clientSecret := os.Getenv("AZURE_APP_CLIENT_SECRET")

	if tenantID == "" || clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("missing required environment variables: AZURE_APP_CLIENT_ID, AZURE_APP_CLIENT_SECRET, or AZURE_APP_TENANT_ID")
	}

	credential, err := azidentity.NewClientSecretCredential(
		tenantID,
		clientID,
		clientSecret,
		&azidentity.ClientSecretCredentialOptions{})
	if err != nil {
		log.Error("Failed to create credential", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	graphClient, err := graph.NewGraphServiceClientWithCredentials(
		credential,
		[]string{"https://graph.microsoft.com/.default"},
	)
	if err != nil {
		log.Error("Failed to create MS Graph client", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create MS Graph client: %w", err)
	}

	log.Info("Successfully created MS Graph identity client using the SDK")
	return &graphSDKClient{graphClient: graphClient}, nil
}

// ListActiveUserEmails returns the lower-cased e-mail of every enabled user in
// the directory, following the result pages.
func (g *graphSDKClient) ListActiveUserEmails(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	filter := "accountEnabled eq true"
	top := int32(pageSize)
	config := &users.UsersRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.UsersRequestBuilderGetQueryParameters{
			Filter: &filter,
			Select: []string{"mail", "userPrincipalName"},
			Top:    &top,
		},
	}

	page, err := g.graphClient.Users().Get(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory users: %w", err)
	}

	var emails []string
	for page != nil {
		emails = append(emails, userEmails(page.GetValue())...)

		next := page.GetOdataNextLink()
		if next == nil || *next == "" {
			break
		}
		page, err = g.graphClient.Users().WithUrl(*next).Get(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list directory users: %w", err)
		}
	}

	log.Info("Fetched active directory users", slog.Int("count", len(emails)))
	return emails, nil
}

// userEmails picks the mail address of each user, falling back to the user
// principal name.
func userEmails(values []graphmodels.Userable) []string {
	emails := make([]string, 0, len(values))
	for _, u := range values {
		email := deref(u.GetMail())
		if email == "" {
			email = deref(u.GetUserPrincipalName())
		}
		if email == "" {
			continue
		}
		emails = append(emails, strings.ToLower(email))
	}
	return emails
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
