package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionsMinutesUsed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orgs/nais/settings/billing/actions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"total_minutes_used":      1234.5,
			"total_paid_minutes_used": 0,
			"included_minutes":        50000,
		})
	})
	mux.HandleFunc("GET /orgs/private/settings/billing/actions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		writeJSON(t, w, map[string]any{"message": "Must have admin rights"})
	})
	client := newTestRestClient(t, mux)

	used, err := client.ActionsMinutesUsed(context.Background(), "nais")
	require.NoError(t, err)
	assert.InDelta(t, 1234.5, used, 0.0001)

	_, err = client.ActionsMinutesUsed(context.Background(), "private")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get Actions billing of organisation private")
}

func TestQuotaThreshold(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      map[string]any
		want      int
		wantFound bool
		errorMsg  string
	}{
		{
			name:      "stored threshold",
			status:    http.StatusOK,
			body:      map[string]any{"name": QuotaThresholdVariable, "value": "80"},
			want:      80,
			wantFound: true,
		},
		{
			name:   "missing variable",
			status: http.StatusNotFound,
			body:   map[string]any{"message": "Not Found"},
		},
		{
			name:     "not a number",
			status:   http.StatusOK,
			body:     map[string]any{"name": QuotaThresholdVariable, "value": "eighty"},
			errorMsg: `invalid value "eighty"`,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     map[string]any{"message": "boom"},
			errorMsg: "failed to get variable GHA_MINUTES_QUOTA_THRESHOLD of organisation navikt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /orgs/navikt/actions/variables/"+QuotaThresholdVariable, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			})
			client := newTestRestClient(t, mux)

			threshold, found, err := client.QuotaThreshold(context.Background())
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, threshold)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func TestSetQuotaThreshold(t *testing.T) {
	t.Run("updates existing variable", func(t *testing.T) {
		var body map[string]any
		mux := http.NewServeMux()
		mux.HandleFunc("PATCH /orgs/navikt/actions/variables/"+QuotaThresholdVariable, func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusNoContent)
		})
		client := newTestRestClient(t, mux)

		require.NoError(t, client.SetQuotaThreshold(context.Background(), 90))
		assert.Equal(t, "90", body["value"])
		assert.Equal(t, QuotaThresholdVariable, body["name"])
	})

	t.Run("creates missing variable", func(t *testing.T) {
		var created map[string]any
		mux := http.NewServeMux()
		mux.HandleFunc("PATCH /orgs/navikt/actions/variables/"+QuotaThresholdVariable, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(t, w, map[string]any{"message": "Not Found"})
		})
		mux.HandleFunc("POST /orgs/navikt/actions/variables", func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			w.WriteHeader(http.StatusCreated)
		})
		client := newTestRestClient(t, mux)

		require.NoError(t, client.SetQuotaThreshold(context.Background(), 70))
		assert.Equal(t, "70", created["value"])
		assert.Equal(t, "private", created["visibility"])
	})

	t.Run("fails on forbidden", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("PATCH /orgs/navikt/actions/variables/"+QuotaThresholdVariable, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			writeJSON(t, w, map[string]any{"message": "Resource not accessible by integration"})
		})
		client := newTestRestClient(t, mux)

		err := client.SetQuotaThreshold(context.Background(), 70)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to set variable")
	})
}

func TestEnterpriseOrganisations(t *testing.T) {
	var cursors []any
	client := newTestGraphQLClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nav", req.Variables["slug"])
		cursors = append(cursors, req.Variables["cursor"])

		w.Header().Set("Content-Type", "application/json")
		if req.Variables["cursor"] == nil {
			io.WriteString(w, `{"data":{"enterprise":{"organizations":{"nodes":[{"login":"navikt"},{"login":"nais"}],"pageInfo":{"endCursor":"Y3Vyc29yOjI=","hasNextPage":true}}}}}`)
			return
		}
		io.WriteString(w, `{"data":{"enterprise":{"organizations":{"nodes":[{"login":"navikt-test"}],"pageInfo":{"endCursor":"Y3Vyc29yOjM=","hasNextPage":false}}}}}`)
	})

	orgs, err := client.EnterpriseOrganisations(context.Background(), "nav")
	require.NoError(t, err)
	assert.Equal(t, []string{"navikt", "nais", "navikt-test"}, orgs)
	assert.Equal(t, []any{nil, "Y3Vyc29yOjI="}, cursors)
}

func TestEnterpriseOrganisations_Error(t *testing.T) {
	client := newTestGraphQLClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":null,"errors":[{"message":"Could not resolve to an Enterprise with the slug 'nav'."}]}`)
	})

	_, err := client.EnterpriseOrganisations(context.Background(), "nav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list organisations of enterprise nav")
}
