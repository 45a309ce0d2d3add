// Package instrumentation provides OpenTelemetry metrics and tracing for
// authflow.
//
// The Provider wires an OTel meter provider and tracer provider with
// pluggable exporters (prometheus, otlp, stdout) selected via Config,
// typically populated from the environment through DefaultConfig.
//
// Metrics cover the authorization-flow lifecycle: flows started, flow
// resolutions by outcome, flow duration, code-for-token exchanges and
// user-info fetches. Span helpers (StartFlowSpan, StartEndpointSpan)
// carry the auth.* attribute namespace.
//
// Instrumentation can be disabled entirely (INSTRUMENTATION_ENABLED=false),
// in which case the Provider hands out no-op recorders and the engine runs
// without any telemetry overhead.
package instrumentation
