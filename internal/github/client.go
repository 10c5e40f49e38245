package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gh "github.com/google/go-github/v72/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

var log = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// AppConfig holds the credentials of the GitHub App installation.
type AppConfig struct {
	AppID          int64
	InstallationID int64
	PrivateKey     []byte
}

// LoadGitHubAppConfig reads the GitHub App credentials from the environment.
func LoadGitHubAppConfig() (*AppConfig, error) {
	appID := os.Getenv("GITHUB_APP_ID")
	if appID == "" {
		return nil, fmt.Errorf("missing required environment variable: GITHUB_APP_ID")
	}
	installationID := os.Getenv("GITHUB_APP_INSTALLATION_ID")
	if installationID == "" {
		return nil, fmt.Errorf("missing required environment variable: GITHUB_APP_INSTALLATION_ID")
	}
	privateKey := os.Getenv("GITHUB_APP_PRIVATE_KEY")
	if privateKey == "" {
		return nil, fmt.Errorf("missing required environment variable: GITHUB_APP_PRIVATE_KEY")
	}

	appIDInt, err := strconv.ParseInt(appID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GITHUB_APP_ID: %w", err)
	}
	installationIDInt, err := strconv.ParseInt(installationID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GITHUB_APP_INSTALLATION_ID: %w", err)
	}

	return &AppConfig{
		AppID:          appIDInt,
		InstallationID: installationIDInt,
		PrivateKey:     []byte(privateKey),
	}, nil
}

// newHTTPClient returns an HTTP client authenticated with GITHUB_TOKEN when it
// is set, and as the GitHub App installation otherwise.
func newHTTPClient(ctx context.Context) (*http.Client, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})), nil
	}

	cfg, err := LoadGitHubAppConfig()
	if err != nil {
		return nil, err
	}
	// handles the App JWT and installation token refresh
	itr, err := ghinstallation.New(http.DefaultTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub installation transport: %w", err)
	}
	return &http.Client{Transport: itr, Timeout: 60 * time.Second}, nil
}

// RestClient talks to the GitHub REST API on behalf of one organisation.
type RestClient struct {
	client *gh.Client
	org    string
	now    func() time.Time
}

// NewRestClient creates a REST client for org.
func NewRestClient(ctx context.Context, org string) (*RestClient, error) {
	httpClient, err := newHTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	return &RestClient{client: gh.NewClient(httpClient), org: org, now: time.Now}, nil
}

// GraphQLClient talks to the GitHub GraphQL API on behalf of one organisation.
type GraphQLClient struct {
	client *githubv4.Client
	org    string
}

// NewGraphQLClient creates a GitHub-v4 client for org.
func NewGraphQLClient(ctx context.Context, org string) (*GraphQLClient, error) {
	httpClient, err := newHTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GraphQLClient{client: githubv4.NewClient(httpClient), org: org}, nil
}

// SSOEmail returns the e-mail of the SAML identity linked to login, or an
// empty string when the user has none.
func (c *GraphQLClient) SSOEmail(ctx context.Context, login string) (string, error) {
	var q struct {
		Organization struct {
			SamlIdentityProvider struct {
				ExternalIdentities struct {
					Edges []struct {
						Node struct {
							SamlIdentity struct {
								NameID string `graphql:"nameId"`
							} `graphql:"samlIdentity"`
						}
					} `graphql:"edges"`
				} `graphql:"externalIdentities(login: $login, first: 1)"`
			} `graphql:"samlIdentityProvider"`
		} `graphql:"organization(login: $orgLogin)"`
	}
	variables := map[string]interface{}{
		"orgLogin": githubv4.String(c.org),
		"login":    githubv4.String(login),
	}
	if err := c.client.Query(ctx, &q, variables); err != nil {
		return "", fmt.Errorf("failed to look up SAML identity of %s: %w", login, err)
	}
	edges := q.Organization.SamlIdentityProvider.ExternalIdentities.Edges
	if len(edges) == 0 {
		return "", nil
	}
	return edges[0].Node.SamlIdentity.NameID, nil
}
