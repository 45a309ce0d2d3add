package flow

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// ResponseType selects the OAuth 2.0 flow variant.
type ResponseType string

// Supported response types.
const (
	ResponseTypeCode    ResponseType = "code"
	ResponseTypeToken   ResponseType = "token"
	ResponseTypeIDToken ResponseType = "id_token"
)

// Implicit reports whether the response type delivers tokens directly on the
// front channel. PKCE is undefined for implicit flows, and a client secret
// must never appear in a user-agent-visible URL.
func (rt ResponseType) Implicit() bool {
	return rt == ResponseTypeToken || rt == ResponseTypeIDToken
}

// Standard authorization request parameter names.
const (
	paramResponseType        = "response_type"
	paramClientID            = "client_id"
	paramRedirectURI         = "redirect_uri"
	paramScope               = "scope"
	paramState               = "state"
	paramNonce               = "nonce"
	paramCodeChallenge       = "code_challenge"
	paramCodeChallengeMethod = "code_challenge_method"
	paramLoginHint           = "login_hint"
	paramUILocales           = "ui_locales"
	paramPrompt              = "prompt"
)

// reservedParams are protocol parameters ExtraParams may not override; they
// are derived from the request itself. The state entry is consumed at build
// time instead (see NewRequest).
var reservedParams = map[string]bool{
	paramResponseType:        true,
	paramClientID:            true,
	paramRedirectURI:         true,
	paramScope:               true,
	paramState:               true,
	paramCodeChallenge:       true,
	paramCodeChallengeMethod: true,
}

// Config is the caller-supplied configuration for an authorization request.
// Provider presets extend it (required scopes, extra-parameter mapping)
// through pure transforms rather than subclassing; see the provider package.
type Config struct {
	// ClientID identifies the OAuth client. Required at build time.
	ClientID string

	// ClientSecret authenticates confidential clients. It is only ever
	// transmitted on the back-channel token exchange of a code grant;
	// for implicit response types it is never sent anywhere.
	ClientSecret string

	// Scopes requested by the caller. Merged (as a set) with
	// RequiredScopes at build time.
	Scopes []string

	// RequiredScopes is the provider-mandated minimum scope set.
	RequiredScopes []string

	// ResponseType selects the grant. Defaults to ResponseTypeCode.
	ResponseType ResponseType

	// RedirectURI is the URI the provider redirects back to. Required.
	RedirectURI string

	// UsePKCE requests a PKCE verifier/challenge pair. Forced off for
	// implicit response types, where PKCE is undefined.
	UsePKCE bool

	// PlainPKCE selects the "plain" challenge method instead of S256.
	// Only honored when set explicitly; S256 is never downgraded.
	PlainPKCE bool

	// ExtraParams are additional authorization request parameters.
	// Caller-supplied values win over convenience-field mappings, but
	// reserved protocol parameters (response_type, client_id,
	// redirect_uri, scope, code_challenge, code_challenge_method) cannot
	// be overridden here. A "state" entry is folded into the request
	// state, same as Config.State.
	ExtraParams map[string]string

	// State overrides the generated state parameter. Intended for tests;
	// a caller-supplied state reduces the unpredictability assurance and
	// is flagged as such by the orchestrator.
	State string

	// LanguageHint is mapped to ui_locales unless the provider transform
	// or ExtraParams already claim it.
	LanguageHint string

	// LoginHint is mapped to login_hint.
	LoginHint string

	// ForceAccountSelection is mapped to prompt=select_account.
	ForceAccountSelection bool
}

// Request is the unit of flow state: the evaluated configuration plus the
// per-attempt state, nonce and PKCE material. A Request is single-use; its
// state, nonce and verifier must not be reused across two presentations.
type Request struct {
	config    Config
	discovery *DiscoveryDocument
	scopes    []string
	pkce      *PKCEPair
	state     string
	createdAt time.Time

	// callerState records that the state was supplied by the caller
	// rather than generated, which reduces assurance.
	callerState bool

	// nonce is generated lazily, once, and cached so repeated parameter
	// derivations for the same request return the identical value.
	nonceMu sync.Mutex
	nonce   string
}

// NewRequest evaluates the configuration against the discovery document and
// assembles an authorization request. It fails with ConfigError when the
// client id is absent, when the redirect URI is absent, or when the response
// type requires a capability the discovery document does not advertise.
func NewRequest(cfg Config, disc *DiscoveryDocument) (*Request, error) {
	if cfg.ClientID == "" {
		return nil, NewConfigError("client id is required")
	}
	if cfg.RedirectURI == "" {
		return nil, NewConfigError("redirect URI is required")
	}
	if disc == nil || disc.AuthorizationEndpoint == "" {
		return nil, NewConfigError("discovery document has no authorization endpoint")
	}

	if cfg.ResponseType == "" {
		cfg.ResponseType = ResponseTypeCode
	}

	if cfg.ResponseType == ResponseTypeCode && !disc.SupportsCodeExchange() {
		return nil, NewConfigError("response type %q requires a token endpoint, which the provider does not advertise", cfg.ResponseType)
	}

	// PKCE is defined only for the authorization-code grant.
	if cfg.ResponseType.Implicit() {
		cfg.UsePKCE = false
	}

	req := &Request{
		config:    cfg,
		discovery: disc,
		scopes:    mergeScopes(cfg.Scopes, cfg.RequiredScopes),
		createdAt: time.Now(),
	}

	// A state in ExtraParams is caller-supplied state by another name;
	// fold it in so the correlator stays bound to the value on the wire.
	state := cfg.State
	if state == "" {
		state = cfg.ExtraParams[paramState]
	}
	if state != "" {
		req.state = state
		req.callerState = true
	} else {
		state, err := generateState()
		if err != nil {
			return nil, err
		}
		req.state = state
	}

	if cfg.UsePKCE {
		var (
			pkce *PKCEPair
			err  error
		)
		if cfg.PlainPKCE {
			pkce, err = GeneratePlainPKCE()
		} else {
			pkce, err = GeneratePKCE()
		}
		if err != nil {
			return nil, err
		}
		req.pkce = pkce
	}

	return req, nil
}

// mergeScopes merges caller scopes with the provider-mandated minimum set.
// Scopes form a set: the result contains every required scope and no
// duplicates. First-seen order is kept so serialization is deterministic.
func mergeScopes(scopes, required []string) []string {
	seen := make(map[string]bool, len(scopes)+len(required))
	merged := make([]string, 0, len(scopes)+len(required))
	for _, lists := range [][]string{scopes, required} {
		for _, s := range lists {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			merged = append(merged, s)
		}
	}
	return merged
}

// Config returns the evaluated configuration.
func (r *Request) Config() Config {
	return r.config
}

// Discovery returns the discovery document the request was built against.
func (r *Request) Discovery() *DiscoveryDocument {
	return r.discovery
}

// Scopes returns the merged scope set in serialization order.
func (r *Request) Scopes() []string {
	return r.scopes
}

// State returns the state parameter bound to this request.
func (r *Request) State() string {
	return r.state
}

// CallerSuppliedState reports whether the state parameter was supplied by
// the caller instead of generated. Caller-supplied states reduce the
// unpredictability assurance the state parameter exists to provide.
func (r *Request) CallerSuppliedState() bool {
	return r.callerState
}

// PKCE returns the PKCE pair, or nil when PKCE is not in use.
func (r *Request) PKCE() *PKCEPair {
	return r.pkce
}

// CreatedAt returns the request creation time.
func (r *Request) CreatedAt() time.Time {
	return r.createdAt
}

// Nonce returns the nonce for id_token requests, generating it on first use
// and caching it so every subsequent derivation returns the same value.
// A nonce supplied via ExtraParams takes precedence and suppresses
// generation. Returns the empty string for non-id_token response types.
func (r *Request) Nonce() (string, error) {
	if r.config.ResponseType != ResponseTypeIDToken {
		return "", nil
	}
	if n, ok := r.config.ExtraParams[paramNonce]; ok && n != "" {
		return n, nil
	}

	r.nonceMu.Lock()
	defer r.nonceMu.Unlock()
	if r.nonce == "" {
		n, err := generateNonce()
		if err != nil {
			return "", err
		}
		r.nonce = n
	}
	return r.nonce, nil
}

// Params derives the effective authorization request parameters. The
// derivation is idempotent: repeated calls yield identical values,
// including the lazily generated nonce. The client secret never appears
// here; it is only transmitted on the back-channel token exchange.
func (r *Request) Params() (url.Values, error) {
	v := url.Values{}
	v.Set(paramResponseType, string(r.config.ResponseType))
	v.Set(paramClientID, r.config.ClientID)
	v.Set(paramRedirectURI, r.config.RedirectURI)
	if len(r.scopes) > 0 {
		v.Set(paramScope, strings.Join(r.scopes, " "))
	}
	v.Set(paramState, r.state)

	if r.pkce != nil {
		v.Set(paramCodeChallenge, r.pkce.Challenge)
		v.Set(paramCodeChallengeMethod, r.pkce.Method)
	}

	nonce, err := r.Nonce()
	if err != nil {
		return nil, err
	}
	if nonce != "" {
		v.Set(paramNonce, nonce)
	}

	// Convenience fields map to standard parameters, then caller-supplied
	// extra parameters win over mappings of the same key. Reserved
	// protocol parameters are skipped: letting an extra param rewrite the
	// state (or client id, redirect URI, challenge) would desync the URL
	// from the values this request is bound to.
	if r.config.LoginHint != "" {
		v.Set(paramLoginHint, r.config.LoginHint)
	}
	if r.config.LanguageHint != "" {
		v.Set(paramUILocales, r.config.LanguageHint)
	}
	if r.config.ForceAccountSelection {
		v.Set(paramPrompt, "select_account")
	}
	for k, val := range r.config.ExtraParams {
		if val == "" || reservedParams[k] {
			continue
		}
		v.Set(k, val)
	}

	return v, nil
}

// AuthorizationURL computes the authorization URL deterministically from the
// discovery document's authorization endpoint and the canonical query:
// stable key order, standard form percent-encoding, empty optionals omitted.
func (r *Request) AuthorizationURL() (string, error) {
	u, err := url.Parse(r.discovery.AuthorizationEndpoint)
	if err != nil {
		return "", NewConfigError("invalid authorization endpoint: %v", err)
	}

	params, err := r.Params()
	if err != nil {
		return "", err
	}

	// Preserve any query the endpoint already carries.
	q := u.Query()
	for k, vals := range params {
		for _, val := range vals {
			q.Set(k, val)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
