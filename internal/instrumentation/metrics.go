package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrTool      = "tool"
	attrDomain    = "user_domain"
	attrModel     = "model"
	attrOutcome   = "outcome"
	attrChannel   = "channel"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics is a valid no-op recorder.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Calendar API metrics
	calendarOperationsTotal   metric.Int64Counter
	calendarOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthAuthTotal metric.Int64Counter

	// Tool metrics (chat and MCP)
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// LLM metrics
	llmRequestsTotal   metric.Int64Counter
	llmRequestDuration metric.Float64Histogram

	// Booking metrics
	bookingsTotal metric.Int64Counter

	// detailedLabels controls whether the account domain is added to labels
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.calendarOperationsTotal, err = meter.Int64Counter(
		"calendar_api_operations_total",
		metric.WithDescription("Total number of Google Calendar API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_api_operations_total counter: %w", err)
	}

	m.calendarOperationDuration, err = meter.Float64Histogram(
		"calendar_api_operation_duration_seconds",
		metric.WithDescription("Google Calendar API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_api_operation_duration_seconds histogram: %w", err)
	}

	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of Google consent flow completions"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"tool_invocations_total",
		metric.WithDescription("Total number of scheduling tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"tool_duration_seconds",
		metric.WithDescription("Scheduling tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_duration_seconds histogram: %w", err)
	}

	m.llmRequestsTotal, err = meter.Int64Counter(
		"llm_requests_total",
		metric.WithDescription("Total number of chat completion requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_requests_total counter: %w", err)
	}

	m.llmRequestDuration, err = meter.Float64Histogram(
		"llm_request_duration_seconds",
		metric.WithDescription("Chat completion request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_request_duration_seconds histogram: %w", err)
	}

	m.bookingsTotal, err = meter.Int64Counter(
		"bookings_total",
		metric.WithDescription("Total number of booking attempts by outcome"),
		metric.WithUnit("{booking}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bookings_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
// path should be the route template, not the raw URL.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)

	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCalendarOperation records a Google Calendar API call.
//
// Parameters:
//   - operation: OperationList or OperationCreate
//   - status: StatusSuccess or StatusError
//   - duration: Time taken for the call
func (m *Metrics) RecordCalendarOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.calendarOperationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)

	m.calendarOperationsTotal.Add(ctx, 1, attrs)
	m.calendarOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordOAuthAuth records a consent flow completion.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return
	}

	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records a tool invocation with tool name, status, and duration.
// channel is "chat" or "mcp".
func (m *Metrics) RecordToolInvocation(ctx context.Context, channel, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrChannel, channel),
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)

	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordLLMRequest records one chat completion round trip.
func (m *Metrics) RecordLLMRequest(ctx context.Context, model, status string, duration time.Duration) {
	if m == nil || m.llmRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrModel, model),
		attribute.String(attrStatus, status),
	)

	m.llmRequestsTotal.Add(ctx, 1, attrs)
	m.llmRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordBooking records a booking attempt by outcome.
// The account domain is only added when detailed labels are enabled.
func (m *Metrics) RecordBooking(ctx context.Context, outcome, account string) {
	if m == nil || m.bookingsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String(attrOutcome, outcome)}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrDomain, ExtractUserDomain(account)))
	}

	m.bookingsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
