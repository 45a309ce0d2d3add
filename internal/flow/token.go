package flow

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// HTTPDoer performs HTTP requests. The engine specifies method, endpoint,
// headers and body; transport concerns (TLS, proxies, retry/backoff) belong
// to the implementation.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenResponse is a token-endpoint response. IssuedAt is recorded locally
// at receipt time, not trusted from the provider, so expiry is computed
// deterministically regardless of provider clock skew.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`

	IssuedAt time.Time `json:"-"`
}

// Expiry returns the computed expiry time, or the zero time when the
// provider reported no lifetime.
func (t *TokenResponse) Expiry() time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// OAuth2Token converts the response into a *oauth2.Token so it can feed
// standard Go API clients.
func (t *TokenResponse) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry(),
	}
}

// TokenSource returns a refreshing oauth2.TokenSource bound to the request's
// client credentials and the discovery token endpoint. Refresh scheduling and
// persistence stay with golang.org/x/oauth2 and the caller.
func (t *TokenResponse) TokenSource(ctx context.Context, req *Request) oauth2.TokenSource {
	cfg := req.Config()
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       req.Scopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  req.Discovery().AuthorizationEndpoint,
			TokenURL: req.Discovery().TokenEndpoint,
		},
	}
	return conf.TokenSource(ctx, t.OAuth2Token())
}

// Exchanger turns an authorization code into a token response via the
// provider's token endpoint. It performs no retries; retry policy is the
// caller's decision.
type Exchanger struct {
	client HTTPDoer
	logger *slog.Logger
	now    func() time.Time
}

// NewExchanger creates an Exchanger. A nil client falls back to
// http.DefaultClient, a nil logger to slog.Default().
func NewExchanger(client HTTPDoer, logger *slog.Logger) *Exchanger {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exchanger{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Exchange posts the authorization code to the token endpoint with grant
// type authorization_code, the original redirect URI, and the PKCE verifier
// when one was generated. The client secret, withheld from the front-channel
// request, is included here: the back-channel exchange is the only leg where
// transmitting it is acceptable.
func (e *Exchanger) Exchange(ctx context.Context, code string, req *Request) (*TokenResponse, error) {
	cfg := req.Config()
	if cfg.ResponseType != ResponseTypeCode {
		return nil, NewConfigError("token exchange requires the authorization-code grant, got %q", cfg.ResponseType)
	}
	disc := req.Discovery()
	if !disc.SupportsCodeExchange() {
		return nil, NewConfigError("discovery document has no token endpoint")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", cfg.RedirectURI)
	form.Set("client_id", cfg.ClientID)
	if pkce := req.PKCE(); pkce != nil {
		// The verifier, never the challenge.
		form.Set("code_verifier", pkce.Verifier)
	}
	if cfg.ClientSecret != "" {
		form.Set("client_secret", cfg.ClientSecret)
	}

	body, status, err := e.postForm(ctx, disc.TokenEndpoint, form)
	if err != nil {
		return nil, &TokenError{Code: ErrCodeNetwork, Err: err}
	}

	if status < 200 || status > 299 {
		code, desc := parseOAuthErrorBody(body)
		e.logger.Warn("token exchange failed", "status", status, "error", code)
		return nil, &TokenError{Code: code, Description: desc, Status: status}
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &TokenError{Code: ErrCodeInvalidResponse, Status: status, Err: err}
	}
	if token.AccessToken == "" {
		return nil, &TokenError{Code: ErrCodeInvalidResponse, Description: "token response has no access token", Status: status}
	}
	token.IssuedAt = e.now()

	e.logger.Debug("token exchange completed", "token_type", token.TokenType, "expires_in", token.ExpiresIn)
	return &token, nil
}

// Revoke revokes a token at the provider's revocation endpoint (RFC 7009).
func (e *Exchanger) Revoke(ctx context.Context, token string, req *Request) error {
	disc := req.Discovery()
	if !disc.SupportsRevocation() {
		return NewConfigError("discovery document has no revocation endpoint")
	}

	cfg := req.Config()
	form := url.Values{}
	form.Set("token", token)
	form.Set("client_id", cfg.ClientID)
	if cfg.ClientSecret != "" {
		form.Set("client_secret", cfg.ClientSecret)
	}

	body, status, err := e.postForm(ctx, disc.RevocationEndpoint, form)
	if err != nil {
		return &TokenError{Code: ErrCodeNetwork, Err: err}
	}
	if status < 200 || status > 299 {
		code, desc := parseOAuthErrorBody(body)
		return &TokenError{Code: code, Description: desc, Status: status}
	}
	return nil
}

// postForm sends a form-encoded POST and returns the response body and
// status.
func (e *Exchanger) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// parseOAuthErrorBody extracts the provider's error code and description
// from a JSON error body, falling back to the generic http_status code.
func parseOAuthErrorBody(body []byte) (code, description string) {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error, payload.ErrorDescription
	}
	return ErrCodeHTTPStatus, ""
}
