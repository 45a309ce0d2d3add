package flow

// Outcome classifies how a flow resolved.
type Outcome int

// Flow outcomes. Cancel, Dismiss and Locked are normal terminal outcomes,
// not errors: calling UIs can treat them silently.
const (
	OutcomeSuccess Outcome = iota
	OutcomeError
	OutcomeCancel
	OutcomeDismiss
	OutcomeLocked
)

// String returns the outcome name for logging and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeCancel:
		return "cancel"
	case OutcomeDismiss:
		return "dismiss"
	case OutcomeLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Result is the outcome of matching a response against a pending request.
type Result struct {
	// Outcome classifies the resolution.
	Outcome Outcome

	// Params holds the response parameters on success (e.g. "code", or
	// "access_token" for implicit flows).
	Params map[string]string

	// Code and Description describe the failure when Outcome is
	// OutcomeError: either the provider's error response or a
	// protocol-level code such as "state_mismatch".
	Code        string
	Description string
}

// Success reports whether the flow resolved successfully.
func (r *Result) Success() bool {
	return r != nil && r.Outcome == OutcomeSuccess
}

// UserAborted reports whether the flow ended by user action or user-agent
// unavailability rather than by error.
func (r *Result) UserAborted() bool {
	if r == nil {
		return false
	}
	switch r.Outcome {
	case OutcomeCancel, OutcomeDismiss, OutcomeLocked:
		return true
	}
	return false
}

// Err returns a typed FlowError when the result is an error outcome, nil
// otherwise. Cancel, Dismiss and Locked yield nil: they are not errors.
func (r *Result) Err() error {
	if r == nil || r.Outcome != OutcomeError {
		return nil
	}
	return NewFlowError(r.Code, r.Description)
}

func successResult(params map[string]string) *Result {
	return &Result{Outcome: OutcomeSuccess, Params: params}
}

func errorResult(code, description string) *Result {
	return &Result{Outcome: OutcomeError, Code: code, Description: description}
}
