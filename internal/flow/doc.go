// Package flow implements the OAuth 2.0 / OpenID Connect authorization-flow
// engine: building authorization requests, correlating user-agent responses
// with their originating request, exchanging authorization codes for tokens,
// and fetching user information.
//
// The engine is transport- and UI-agnostic. The pieces that touch the outside
// world are injected:
//   - Presenter hands the authorization URL to a user-agent and reports how
//     the interaction ended (redirect, dismissal, cancellation, locked).
//   - RedirectURIProvider decides which redirect URI to embed.
//   - ClientIDSelector resolves which configured client identifier applies.
//   - HTTPDoer performs the token-exchange and user-info HTTP calls.
//
// A flow runs build -> present -> await -> (exchange) -> resolve. Each
// Request is single-use: its state, nonce and PKCE verifier must never be
// reused across two presentations of the user-agent.
//
// # Security Considerations
//
//   - The state parameter carries 256 bits of entropy and is compared in
//     constant time against inbound responses.
//   - PKCE uses the S256 challenge method; "plain" must be requested
//     explicitly and is never a fallback.
//   - Client secrets are only ever sent on the back-channel token exchange,
//     never in the front-channel authorization URL.
//   - Verifiers, secrets, tokens and nonces are never logged.
package flow
