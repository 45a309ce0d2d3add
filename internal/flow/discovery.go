package flow

// DiscoveryDocument holds the provider endpoints needed to run a flow. Any
// endpoint may be empty if the provider lacks the capability. The document
// is owned by the caller, passed by reference into every operation, and
// never mutated by the engine.
type DiscoveryDocument struct {
	AuthorizationEndpoint string
	TokenEndpoint         string
	RevocationEndpoint    string
	UserInfoEndpoint      string
}

// SupportsCodeExchange reports whether the provider advertises a token
// endpoint, required for the authorization-code grant.
func (d *DiscoveryDocument) SupportsCodeExchange() bool {
	return d != nil && d.TokenEndpoint != ""
}

// SupportsRevocation reports whether the provider advertises a revocation
// endpoint.
func (d *DiscoveryDocument) SupportsRevocation() bool {
	return d != nil && d.RevocationEndpoint != ""
}

// SupportsUserInfo reports whether the provider advertises a user-info
// endpoint.
func (d *DiscoveryDocument) SupportsUserInfo() bool {
	return d != nil && d.UserInfoEndpoint != ""
}
