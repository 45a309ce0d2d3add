package flow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/authflow/internal/instrumentation"
)

func TestUserInfoFetch(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"u-1","name":"Alex","email":"alex@example.com","picture":"https://img.example.com/a.png","locale":"de"}`))
	}))
	defer srv.Close()

	disc := testDiscovery()
	disc.UserInfoEndpoint = srv.URL

	user, err := NewUserInfoFetcher(nil, nil, nil).Fetch(context.Background(), "tok-123", disc)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "Alex", user.Name)
	assert.Equal(t, "alex@example.com", user.Email)
	assert.Equal(t, "https://img.example.com/a.png", user.Picture)

	// Provider-specific claims survive normalization.
	assert.Equal(t, "de", user.ProviderData["locale"])
}

func TestUserInfoNormalizationVariants(t *testing.T) {
	tests := []struct {
		name string
		body string
		want User
	}{
		{
			name: "oidc claims",
			body: `{"sub":"u-1","name":"Alex","email":"a@example.com","picture":"p"}`,
			want: User{ID: "u-1", Name: "Alex", Email: "a@example.com", Picture: "p"},
		},
		{
			name: "github-style claims",
			body: `{"id":"42","login":"octo","avatar_url":"https://img.example.com/o.png"}`,
			want: User{ID: "42", Name: "octo", Picture: "https://img.example.com/o.png"},
		},
		{
			name: "display name fallback",
			body: `{"user_id":"u-9","display_name":"Sam"}`,
			want: User{ID: "u-9", Name: "Sam"},
		},
		{
			name: "sub wins over id",
			body: `{"sub":"subject","id":"legacy"}`,
			want: User{ID: "subject"},
		},
		{
			name: "missing fields stay empty",
			body: `{"unrelated":true}`,
			want: User{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			disc := testDiscovery()
			disc.UserInfoEndpoint = srv.URL

			user, err := NewUserInfoFetcher(nil, nil, nil).Fetch(context.Background(), "tok", disc)
			require.NoError(t, err)
			assert.Equal(t, tt.want.ID, user.ID)
			assert.Equal(t, tt.want.Name, user.Name)
			assert.Equal(t, tt.want.Email, user.Email)
			assert.Equal(t, tt.want.Picture, user.Picture)
			assert.NotNil(t, user.ProviderData)
		})
	}
}

func TestUserInfoMissingEndpoint(t *testing.T) {
	disc := testDiscovery()
	disc.UserInfoEndpoint = ""

	_, err := NewUserInfoFetcher(nil, nil, nil).Fetch(context.Background(), "tok", disc)
	var uiErr *UserInfoError
	require.ErrorAs(t, err, &uiErr)
}

func TestUserInfoUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
	}))
	defer srv.Close()

	disc := testDiscovery()
	disc.UserInfoEndpoint = srv.URL

	_, err := NewUserInfoFetcher(nil, nil, nil).Fetch(context.Background(), "expired", disc)
	var uiErr *UserInfoError
	require.ErrorAs(t, err, &uiErr)
	assert.Equal(t, "invalid_token", uiErr.Code)
	assert.Equal(t, http.StatusUnauthorized, uiErr.Status)
}

func TestUserInfoMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	disc := testDiscovery()
	disc.UserInfoEndpoint = srv.URL

	_, err := NewUserInfoFetcher(nil, nil, nil).Fetch(context.Background(), "tok", disc)
	var uiErr *UserInfoError
	require.ErrorAs(t, err, &uiErr)
	assert.Equal(t, ErrCodeInvalidResponse, uiErr.Code)
}

func TestUserInfoNetworkFailure(t *testing.T) {
	disc := testDiscovery()
	disc.UserInfoEndpoint = "http://127.0.0.1:1/userinfo"

	_, err := NewUserInfoFetcher(nil, nil, nil).Fetch(context.Background(), "tok", disc)
	var uiErr *UserInfoError
	require.ErrorAs(t, err, &uiErr)
	assert.Equal(t, ErrCodeNetwork, uiErr.Code)
}

func TestUserInfoFetchRecordsMetric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sub":"u-1"}`))
	}))
	defer srv.Close()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := instrumentation.NewMetrics(mp.Meter("test"), false)
	require.NoError(t, err)

	disc := testDiscovery()
	disc.UserInfoEndpoint = srv.URL

	_, err = NewUserInfoFetcher(nil, nil, m).Fetch(context.Background(), "tok", disc)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name == "authflow_userinfo_fetches_total" {
				found = true
			}
		}
	}
	assert.True(t, found, "fetch must emit the user-info counter")
}
