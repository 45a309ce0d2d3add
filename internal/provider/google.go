package provider

import (
	"golang.org/x/oauth2/google"

	"github.com/teemow/authflow/internal/flow"
)

// Google-specific endpoints not covered by the x/oauth2 endpoint set.
const (
	googleUserInfoEndpoint   = "https://openidconnect.googleapis.com/v1/userinfo"
	googleRevocationEndpoint = "https://oauth2.googleapis.com/revoke"
)

func init() {
	register(Preset{
		Name: "google",
		Discovery: flow.DiscoveryDocument{
			AuthorizationEndpoint: google.Endpoint.AuthURL,
			TokenEndpoint:         google.Endpoint.TokenURL,
			RevocationEndpoint:    googleRevocationEndpoint,
			UserInfoEndpoint:      googleUserInfoEndpoint,
		},
		RequiredScopes: []string{"openid"},
		Transform:      googleTransform,
	})
}

// googleTransform maps the generic language hint onto Google's "hl"
// parameter. Google's consent screen ignores ui_locales.
func googleTransform(cfg flow.Config) flow.Config {
	if cfg.LanguageHint != "" {
		extra := make(map[string]string, len(cfg.ExtraParams)+1)
		for k, v := range cfg.ExtraParams {
			extra[k] = v
		}
		if _, claimed := extra["hl"]; !claimed {
			extra["hl"] = cfg.LanguageHint
		}
		cfg.ExtraParams = extra
		cfg.LanguageHint = ""
	}
	return cfg
}
