package flow

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/teemow/authflow/internal/instrumentation"
)

// User is the normalized identity returned by the user-info endpoint.
// ProviderData retains the full untouched payload so callers needing
// provider-specific claims are not blocked by the normalization.
type User struct {
	ID      string
	Name    string
	Email   string
	Picture string

	ProviderData map[string]any
}

// UserInfoFetcher maps a bearer access token to a normalized user record
// via the provider's user-info endpoint. It does not cache.
type UserInfoFetcher struct {
	client  HTTPDoer
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewUserInfoFetcher creates a UserInfoFetcher. A nil client falls back to
// http.DefaultClient, a nil logger to slog.Default(); nil metrics record
// nothing.
func NewUserInfoFetcher(client HTTPDoer, logger *slog.Logger, metrics *instrumentation.Metrics) *UserInfoFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserInfoFetcher{client: client, logger: logger, metrics: metrics}
}

// Fetch performs a single authenticated GET against the user-info endpoint.
func (f *UserInfoFetcher) Fetch(ctx context.Context, accessToken string, disc *DiscoveryDocument) (*User, error) {
	if !disc.SupportsUserInfo() {
		f.metrics.RecordUserInfoFetch(ctx, instrumentation.StatusError, 0)
		return nil, &UserInfoError{Code: ErrCodeInvalidResponse, Description: "discovery document has no user-info endpoint"}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, disc.UserInfoEndpoint, nil)
	if err != nil {
		f.metrics.RecordUserInfoFetch(ctx, instrumentation.StatusError, 0)
		return nil, &UserInfoError{Code: ErrCodeNetwork, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		f.metrics.RecordUserInfoFetch(ctx, instrumentation.StatusError, 0)
		return nil, &UserInfoError{Code: ErrCodeNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		f.metrics.RecordUserInfoFetch(ctx, instrumentation.StatusError, 0)
		return nil, &UserInfoError{Code: ErrCodeNetwork, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code, desc := parseOAuthErrorBody(body)
		f.logger.Warn("user-info fetch failed", "status", resp.StatusCode, "error", code)
		f.metrics.RecordUserInfoFetch(ctx, instrumentation.StatusError, resp.StatusCode)
		return nil, &UserInfoError{Code: code, Description: desc, Status: resp.StatusCode}
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		f.metrics.RecordUserInfoFetch(ctx, instrumentation.StatusError, resp.StatusCode)
		return nil, &UserInfoError{Code: ErrCodeInvalidResponse, Status: resp.StatusCode, Err: err}
	}

	f.metrics.RecordUserInfoFetch(ctx, instrumentation.StatusSuccess, resp.StatusCode)
	return normalizeUser(raw), nil
}

// normalizeUser maps common OIDC/OAuth claim names onto the User record.
// Field-name normalization only; no values are synthesized.
func normalizeUser(raw map[string]any) *User {
	user := &User{ProviderData: raw}
	user.ID = firstString(raw, "sub", "id", "user_id")
	user.Name = firstString(raw, "name", "display_name", "login")
	user.Email = firstString(raw, "email")
	user.Picture = firstString(raw, "picture", "avatar_url")
	return user
}

// firstString returns the first present, non-empty string value among keys.
func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
