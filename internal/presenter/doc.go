// Package presenter implements user-agent presentation for authorization
// flows on desktop systems: a loopback HTTP listener that captures the
// provider redirect, and a system-browser launcher.
//
// LoopbackPresenter implements both flow.Presenter and
// flow.RedirectURIProvider: it binds a localhost listener lazily so the
// redirect URI can embed the actual port, opens the system browser at the
// authorization URL, and resolves the presentation when the provider
// redirects back (or the context is cancelled).
//
// SchemePolicy is the redirect-URI policy for platforms using native custom
// schemes or a hosted indirection proxy; the choice is an explicit injected
// value, never derived from ambient environment inspection.
package presenter
