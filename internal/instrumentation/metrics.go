package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrResponseType = "response_type"
	attrOutcome      = "outcome"
	attrStatus       = "status"
	attrProvider     = "provider"
	attrHTTPStatus   = "http_status"
)

// Metrics provides methods for recording authorization-flow metrics.
// The zero value is a no-op recorder.
type Metrics struct {
	flowsStartedTotal    metric.Int64Counter
	flowResolutionsTotal metric.Int64Counter
	flowDuration         metric.Float64Histogram

	tokenExchangesTotal   metric.Int64Counter
	tokenExchangeDuration metric.Float64Histogram

	userInfoFetchesTotal metric.Int64Counter

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.flowsStartedTotal, err = meter.Int64Counter(
		"authflow_flows_started_total",
		metric.WithDescription("Total number of authorization flows started"),
		metric.WithUnit("{flow}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authflow_flows_started_total counter: %w", err)
	}

	m.flowResolutionsTotal, err = meter.Int64Counter(
		"authflow_flow_resolutions_total",
		metric.WithDescription("Total number of authorization flow resolutions by outcome"),
		metric.WithUnit("{flow}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authflow_flow_resolutions_total counter: %w", err)
	}

	m.flowDuration, err = meter.Float64Histogram(
		"authflow_flow_duration_seconds",
		metric.WithDescription("Authorization flow duration from dispatch to resolution in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authflow_flow_duration_seconds histogram: %w", err)
	}

	m.tokenExchangesTotal, err = meter.Int64Counter(
		"authflow_token_exchanges_total",
		metric.WithDescription("Total number of code-for-token exchanges"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authflow_token_exchanges_total counter: %w", err)
	}

	m.tokenExchangeDuration, err = meter.Float64Histogram(
		"authflow_token_exchange_duration_seconds",
		metric.WithDescription("Code-for-token exchange duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authflow_token_exchange_duration_seconds histogram: %w", err)
	}

	m.userInfoFetchesTotal, err = meter.Int64Counter(
		"authflow_userinfo_fetches_total",
		metric.WithDescription("Total number of user-info fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authflow_userinfo_fetches_total counter: %w", err)
	}

	return m, nil
}

// RecordFlowStarted records the dispatch of an authorization flow.
func (m *Metrics) RecordFlowStarted(ctx context.Context, responseType string) {
	if m == nil || m.flowsStartedTotal == nil {
		return // Instrumentation not initialized
	}

	m.flowsStartedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResponseType, responseType),
	))
}

// RecordFlowResolved records a flow resolution with its outcome
// (success, error, cancel, dismiss, locked) and duration.
func (m *Metrics) RecordFlowResolved(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil || m.flowResolutionsTotal == nil || m.flowDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOutcome, outcome),
	}

	m.flowResolutionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.flowDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTokenExchange records a code-for-token exchange attempt.
// Status should be one of: "success", "error".
func (m *Metrics) RecordTokenExchange(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.tokenExchangesTotal == nil || m.tokenExchangeDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStatus, status),
	}

	m.tokenExchangesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.tokenExchangeDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordUserInfoFetch records a user-info fetch attempt. The HTTP status is
// only attached as a label when detailed labels are enabled.
func (m *Metrics) RecordUserInfoFetch(ctx context.Context, status string, httpStatus int) {
	if m == nil || m.userInfoFetchesTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && httpStatus > 0 {
		attrs = append(attrs, attribute.String(attrHTTPStatus, strconv.Itoa(httpStatus)))
	}

	m.userInfoFetchesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
