package dormant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navikt/github-team-auditor/internal/msgraph"
)

type fakeMembers struct {
	logins []string
	err    error
}

func (f *fakeMembers) ListOrgMembers(context.Context) ([]string, error) {
	return f.logins, f.err
}

type fakeIdentities map[string]string

func (f fakeIdentities) SSOEmail(_ context.Context, login string) (string, error) {
	if login == "broken" {
		return "", errors.New("graphql: timeout")
	}
	return f[login], nil
}

func TestIdentify(t *testing.T) {
	members := &fakeMembers{logins: []string{"alice", "bob", "carol", "dave", "broken"}}
	identities := fakeIdentities{
		"alice": "Alice@nav.no",
		"bob":   "bob@nav.no",
		"dave":  "dave@nav.no",
	}
	directory := &msgraph.MockIdentityClient{Emails: []string{"alice@nav.no", "dave@nav.no"}}

	report, err := Identify(context.Background(), members, identities, directory)
	require.NoError(t, err)

	assert.Equal(t, []string{"bob"}, report.Dormant)
	assert.Equal(t, []string{"carol"}, report.Unlinked)
	require.Len(t, report.LookupErrors, 1)
	assert.Contains(t, report.LookupErrors["broken"].Error(), "timeout")
}

func TestIdentify_DirectoryError(t *testing.T) {
	directory := &msgraph.MockIdentityClient{ListError: errors.New("403")}

	_, err := Identify(context.Background(), &fakeMembers{}, fakeIdentities{}, directory)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list active directory users")
}

func TestIdentify_MembersError(t *testing.T) {
	members := &fakeMembers{err: errors.New("502")}

	_, err := Identify(context.Background(), members, fakeIdentities{}, &msgraph.MockIdentityClient{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list organisation members")
}
