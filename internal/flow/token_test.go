package flow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodeRequest(t *testing.T, tokenEndpoint string, cfg Config) *Request {
	t.Helper()
	disc := testDiscovery()
	disc.TokenEndpoint = tokenEndpoint
	if cfg.ClientID == "" {
		cfg.ClientID = "abc"
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = "http://127.0.0.1/cb"
	}
	req, err := NewRequest(cfg, disc)
	require.NoError(t, err)
	return req
}

func TestExchangeSendsExpectedForm(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600,"refresh_token":"ref-456"}`))
	}))
	defer srv.Close()

	req := newCodeRequest(t, srv.URL, Config{
		ClientSecret: "s3cret",
		UsePKCE:      true,
	})

	ex := NewExchanger(nil, nil)
	token, err := ex.Exchange(context.Background(), "XYZ", req)
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "XYZ", gotForm.Get("code"))
	assert.Equal(t, "http://127.0.0.1/cb", gotForm.Get("redirect_uri"))
	assert.Equal(t, "abc", gotForm.Get("client_id"))
	assert.Equal(t, "s3cret", gotForm.Get("client_secret"))
	assert.Equal(t, req.PKCE().Verifier, gotForm.Get("code_verifier"))

	assert.Equal(t, "tok-123", token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, "ref-456", token.RefreshToken)
	assert.False(t, token.IssuedAt.IsZero(), "IssuedAt must be stamped at receipt")
}

func TestExchangePublicClientOmitsSecret(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		_, _ = w.Write([]byte(`{"access_token":"tok-123"}`))
	}))
	defer srv.Close()

	req := newCodeRequest(t, srv.URL, Config{UsePKCE: true})

	_, err := NewExchanger(nil, nil).Exchange(context.Background(), "XYZ", req)
	require.NoError(t, err)

	_, hasSecret := gotForm["client_secret"]
	assert.False(t, hasSecret, "public clients must not send an empty client_secret")
	assert.NotEmpty(t, gotForm.Get("code_verifier"))
}

func TestExchangeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
	}))
	defer srv.Close()

	req := newCodeRequest(t, srv.URL, Config{})

	_, err := NewExchanger(nil, nil).Exchange(context.Background(), "XYZ", req)
	require.Error(t, err)

	var tokErr *TokenError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, "invalid_grant", tokErr.Code)
	assert.Equal(t, "code expired", tokErr.Description)
	assert.Equal(t, http.StatusBadRequest, tokErr.Status)
}

func TestExchangeNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	req := newCodeRequest(t, srv.URL, Config{})

	_, err := NewExchanger(nil, nil).Exchange(context.Background(), "XYZ", req)
	var tokErr *TokenError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, ErrCodeHTTPStatus, tokErr.Code)
	assert.Equal(t, http.StatusBadGateway, tokErr.Status)
}

func TestExchangeMalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	req := newCodeRequest(t, srv.URL, Config{})

	_, err := NewExchanger(nil, nil).Exchange(context.Background(), "XYZ", req)
	var tokErr *TokenError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, ErrCodeInvalidResponse, tokErr.Code)
}

func TestExchangeEmptyAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	req := newCodeRequest(t, srv.URL, Config{})

	_, err := NewExchanger(nil, nil).Exchange(context.Background(), "XYZ", req)
	var tokErr *TokenError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, ErrCodeInvalidResponse, tokErr.Code)
}

func TestExchangeNetworkFailure(t *testing.T) {
	req := newCodeRequest(t, "http://127.0.0.1:1/token", Config{})

	_, err := NewExchanger(nil, nil).Exchange(context.Background(), "XYZ", req)
	var tokErr *TokenError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, ErrCodeNetwork, tokErr.Code)
	assert.Zero(t, tokErr.Status)
	assert.Error(t, tokErr.Unwrap())
}

func TestExchangeRejectsImplicitGrant(t *testing.T) {
	req, err := NewRequest(Config{
		ClientID:     "abc",
		RedirectURI:  "http://127.0.0.1/cb",
		ResponseType: ResponseTypeToken,
	}, testDiscovery())
	require.NoError(t, err)

	_, err = NewExchanger(nil, nil).Exchange(context.Background(), "XYZ", req)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestTokenResponseExpiry(t *testing.T) {
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	token := &TokenResponse{ExpiresIn: 3600, IssuedAt: issued}
	assert.Equal(t, issued.Add(time.Hour), token.Expiry())

	noLifetime := &TokenResponse{IssuedAt: issued}
	assert.True(t, noLifetime.Expiry().IsZero())
}

func TestTokenResponseOAuth2Token(t *testing.T) {
	issued := time.Now()
	token := &TokenResponse{
		AccessToken:  "tok-123",
		TokenType:    "Bearer",
		RefreshToken: "ref-456",
		ExpiresIn:    60,
		IssuedAt:     issued,
	}

	ot := token.OAuth2Token()
	assert.Equal(t, "tok-123", ot.AccessToken)
	assert.Equal(t, "Bearer", ot.TokenType)
	assert.Equal(t, "ref-456", ot.RefreshToken)
	assert.Equal(t, issued.Add(time.Minute), ot.Expiry)
}

func TestRevoke(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	disc := testDiscovery()
	disc.RevocationEndpoint = srv.URL
	req, err := NewRequest(Config{ClientID: "abc", RedirectURI: "http://127.0.0.1/cb"}, disc)
	require.NoError(t, err)

	require.NoError(t, NewExchanger(nil, nil).Revoke(context.Background(), "tok-123", req))
	assert.Equal(t, "tok-123", gotForm.Get("token"))
	assert.Equal(t, "abc", gotForm.Get("client_id"))
}

func TestRevokeWithoutEndpoint(t *testing.T) {
	disc := testDiscovery()
	disc.RevocationEndpoint = ""
	req, err := NewRequest(Config{ClientID: "abc", RedirectURI: "http://127.0.0.1/cb"}, disc)
	require.NoError(t, err)

	err = NewExchanger(nil, nil).Revoke(context.Background(), "tok-123", req)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
