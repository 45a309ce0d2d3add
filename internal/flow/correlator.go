package flow

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/url"
	"sync"
)

// Response query parameters recognized by the correlator.
const (
	respParamError            = "error"
	respParamErrorDescription = "error_description"
	respParamCode             = "code"
	respParamAccessToken      = "access_token"
	respParamIDToken          = "id_token"
)

// FlowState is the correlator's lifecycle state.
type FlowState int

// Correlator states. A correlator moves Idle -> Pending on dispatch and
// to Resolved on exactly one of: response received, user-agent dismissed,
// locked, or cancelled. Resolution is permitted from Idle as well so that
// cancelling a never-dispatched correlator still unblocks its waiters.
const (
	StateIdle FlowState = iota
	StatePending
	StateResolved
)

// String returns the state name for logging.
func (s FlowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Correlator matches an inbound redirect/response against its request's
// state parameter and classifies the outcome. It guarantees at-most-once
// resolution: concurrent resolvers are serialized, the first wins, and
// everything after the first is a no-op. All waiters observe the single
// resolution.
type Correlator struct {
	request *Request
	logger  *slog.Logger

	mu     sync.Mutex
	state  FlowState
	result *Result
	done   chan struct{}
}

// NewCorrelator creates a correlator for a single authorization request.
func NewCorrelator(req *Request, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{
		request: req,
		logger:  logger,
		state:   StateIdle,
		done:    make(chan struct{}),
	}
}

// Begin transitions Idle -> Pending when the request is handed to the
// user-agent. A second Begin while Pending or after resolution fails with
// FlowError "already_in_flight": at most one outstanding presentation per
// request instance.
func (c *Correlator) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return NewFlowError(ErrCodeAlreadyInFlight, "request already dispatched")
	}
	c.state = StatePending
	c.logger.Debug("authorization flow pending", "state_len", len(c.request.State()))
	return nil
}

// State returns the current lifecycle state.
func (c *Correlator) State() FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ResolveRedirect parses a captured redirect URL and resolves the flow with
// its query (or fragment, for implicit flows) parameters.
func (c *Correlator) ResolveRedirect(raw string) {
	u, err := url.Parse(raw)
	if err != nil {
		c.resolve(errorResult(ErrCodeInvalidResponse, "unparseable redirect URL"))
		return
	}

	params := map[string]string{}
	for k, v := range u.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	// Implicit flows return parameters in the fragment.
	if frag, err := url.ParseQuery(u.Fragment); err == nil {
		for k, v := range frag {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	}

	c.ResolveParams(params)
}

// ResolveParams resolves the flow with inbound response parameters. The
// inbound state must match the pending request's state exactly; a mismatch
// is a protocol-level failure, never a success, even when the response
// carries a valid-looking code. A matching state with an error parameter
// yields the provider's error; otherwise the parameters are passed through
// as the success payload.
func (c *Correlator) ResolveParams(params map[string]string) {
	if !stateEqual(params[paramState], c.request.State()) {
		c.logger.Warn("authorization response state mismatch")
		c.resolve(errorResult(ErrCodeStateMismatch, "response state does not match pending request"))
		return
	}

	if code, ok := params[respParamError]; ok && code != "" {
		c.resolve(errorResult(code, params[respParamErrorDescription]))
		return
	}

	c.resolve(successResult(params))
}

// stateEqual compares state parameters in constant time.
func stateEqual(got, want string) bool {
	if len(got) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// Dismiss resolves the flow as dismissed: the user-agent went away without
// delivering a response.
func (c *Correlator) Dismiss() {
	c.resolve(&Result{Outcome: OutcomeDismiss})
}

// ReportLocked resolves the flow as locked: the user-agent could not be
// presented at all (e.g. the OS session is locked).
func (c *Correlator) ReportLocked() {
	c.resolve(&Result{Outcome: OutcomeLocked})
}

// Cancel resolves the flow as cancelled and unblocks all waiters, whether or
// not the request was ever dispatched. A second cancel, or a response
// arriving after resolution, is a no-op, not an error.
func (c *Correlator) Cancel() {
	c.resolve(&Result{Outcome: OutcomeCancel})
}

// resolve performs the single transition to Resolved. Calls after
// resolution are no-ops, which is what makes duplicate or late events safe.
func (c *Correlator) resolve(res *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateResolved {
		c.logger.Debug("dropping flow event after resolution", "outcome", res.Outcome.String())
		return
	}
	c.state = StateResolved
	c.result = res
	close(c.done)

	c.logger.Debug("authorization flow resolved", "outcome", res.Outcome.String())
}

// Wait blocks until the flow resolves or the context is done. Context
// cancellation cancels the flow, so every waiter still observes the same
// terminal result.
func (c *Correlator) Wait(ctx context.Context) *Result {
	select {
	case <-c.done:
	case <-ctx.Done():
		c.Cancel()
		<-c.done
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}
