package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the calmate package.
const TracerName = "github.com/teemow/calmate"

// Span attribute keys for operations.
const (
	// SpanAttrTool is the tool name attribute.
	SpanAttrTool = "calmate.tool"

	// SpanAttrOperation is the calendar operation attribute.
	SpanAttrOperation = "calendar.operation"

	// SpanAttrCalendarID is the target calendar attribute.
	SpanAttrCalendarID = "calendar.id"

	// SpanAttrAccount is the (anonymized) account attribute.
	SpanAttrAccount = "calmate.account"

	// SpanAttrModel is the LLM model attribute.
	SpanAttrModel = "llm.model"

	// SpanAttrToolCalls is the number of tool calls requested by the model.
	SpanAttrToolCalls = "llm.tool_calls"
)

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a span for a tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrTool, toolName))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartCalendarSpan starts a client span for a Google Calendar API call.
func StartCalendarSpan(ctx context.Context, operation, calendarID string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "calendar."+operation,
		trace.WithAttributes(
			attribute.String(SpanAttrOperation, operation),
			attribute.String(SpanAttrCalendarID, calendarID),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartLLMSpan starts a client span for a chat completion request.
func StartLLMSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "llm.chat_completion",
		trace.WithAttributes(attribute.String(SpanAttrModel, model)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// EndSpan sets the span status from err and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		SetSpanError(span, err)
	} else {
		SetSpanSuccess(span)
	}
	span.End()
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
// Returns empty string if no valid span is present.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
