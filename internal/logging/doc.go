// Package logging provides structured logging utilities for authflow.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - Consistent attribute naming across the codebase
//   - Token sanitization for safe logging
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "flow.run")
//	logger.Info("flow resolved",
//	    logging.Outcome("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Debug("token received",
//	    slog.String("token", logging.SanitizeToken(token)))
//
// # Security Considerations
//
// Access tokens, refresh tokens, client secrets, PKCE verifiers and nonces
// must never be logged directly; SanitizeToken reduces a token to a length
// indicator.
package logging
