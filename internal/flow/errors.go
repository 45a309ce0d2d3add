package flow

import (
	"fmt"
)

// FlowError codes for protocol-state violations.
const (
	// ErrCodeAlreadyInFlight indicates a re-entrant dispatch while a
	// presentation is still pending for the same request.
	ErrCodeAlreadyInFlight = "already_in_flight"

	// ErrCodeStateMismatch indicates an inbound response whose state
	// parameter does not match the pending request's state.
	ErrCodeStateMismatch = "state_mismatch"
)

// ConfigError indicates caller misconfiguration: a missing client id, an
// incompatible grant/capability combination, or a missing redirect URI.
// It is surfaced immediately and must never be retried.
type ConfigError struct {
	Reason string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

// NewConfigError creates a new ConfigError with a formatted reason
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// FlowError indicates a protocol-state violation such as a re-entrant
// dispatch or a state mismatch. It is distinct from a user cancel, which is
// a normal terminal outcome and not an error at all.
type FlowError struct {
	Code        string // protocol error code (e.g. "state_mismatch")
	Description string // human-readable description
}

// Error implements the error interface
func (e *FlowError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewFlowError creates a new FlowError
func NewFlowError(code, description string) *FlowError {
	return &FlowError{Code: code, Description: description}
}

// TokenError indicates a failed token-endpoint call. Code is either the
// provider's OAuth error code (e.g. "invalid_grant") or one of the transport
// codes below. The engine performs no retries; Status and Code carry enough
// detail for the caller to decide.
type TokenError struct {
	Code        string // provider error code or transport code
	Description string // provider error description, if present
	Status      int    // HTTP status code, 0 for network failures
	Err         error  // underlying error, if any
}

// Transport-level TokenError / UserInfoError codes.
const (
	ErrCodeNetwork         = "network"
	ErrCodeHTTPStatus      = "http_status"
	ErrCodeInvalidResponse = "invalid_response"
)

// Error implements the error interface
func (e *TokenError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("token error: %s: %s", e.Code, e.Description)
	}
	if e.Err != nil {
		return fmt.Sprintf("token error: %s: %v", e.Code, e.Err)
	}
	return "token error: " + e.Code
}

// Unwrap returns the underlying error
func (e *TokenError) Unwrap() error {
	return e.Err
}

// UserInfoError indicates a failed user-info fetch: the endpoint is absent
// from discovery, unreachable, or returned a non-2xx response.
type UserInfoError struct {
	Code        string
	Description string
	Status      int
	Err         error
}

// Error implements the error interface
func (e *UserInfoError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("userinfo error: %s: %s", e.Code, e.Description)
	}
	if e.Err != nil {
		return fmt.Sprintf("userinfo error: %s: %v", e.Code, e.Err)
	}
	return "userinfo error: " + e.Code
}

// Unwrap returns the underlying error
func (e *UserInfoError) Unwrap() error {
	return e.Err
}
