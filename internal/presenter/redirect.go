package presenter

import (
	"fmt"

	"github.com/teemow/authflow/internal/flow"
)

// OverrideRedirectURI is the RedirectOptions override key for a fully
// specified redirect URI.
const OverrideRedirectURI = "redirect_uri"

// SchemePolicy selects redirect URIs for platforms that register a native
// custom scheme or rely on a hosted indirection proxy. The proxy-vs-direct
// choice arrives as an explicit option; the policy never inspects its
// runtime environment.
type SchemePolicy struct {
	// DefaultScheme is used when RedirectOptions carries no scheme hint.
	DefaultScheme string

	// CallbackHost is the host component of scheme redirects
	// (default "oauth").
	CallbackHost string

	// ProxyURL is the hosted redirect proxy used when indirection is
	// requested.
	ProxyURL string
}

// RedirectURI implements flow.RedirectURIProvider.
func (p SchemePolicy) RedirectURI(opts flow.RedirectOptions) (string, error) {
	if uri := opts.Overrides[OverrideRedirectURI]; uri != "" {
		return uri, nil
	}

	if opts.UseIndirectionProxy {
		if p.ProxyURL == "" {
			return "", fmt.Errorf("indirection proxy requested but no proxy URL configured")
		}
		return p.ProxyURL, nil
	}

	scheme := opts.NativeScheme
	if scheme == "" {
		scheme = p.DefaultScheme
	}
	if scheme == "" {
		return "", fmt.Errorf("no native scheme available for redirect URI")
	}

	host := p.CallbackHost
	if host == "" {
		host = "oauth"
	}
	return fmt.Sprintf("%s://%s/callback", scheme, host), nil
}
