// Package instrumentation provides OpenTelemetry instrumentation for CalMate.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: Counter of HTTP requests by method, route, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Google Calendar:
//   - calendar_api_operations_total: Counter of events.list/events.insert calls by status
//   - calendar_api_operation_duration_seconds: Histogram of call durations
//
// Tools and LLM:
//   - tool_invocations_total / tool_duration_seconds: by channel (chat, mcp), tool, status
//   - llm_requests_total / llm_request_duration_seconds: by model and status
//
// Bookings:
//   - bookings_total: Counter of booking attempts by outcome
//   - oauth_auth_total: Counter of consent flow completions by result
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>), calendar calls
// (calendar.<operation>) and chat completions (llm.chat_completion).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - AUDIT_LOGGING_ENABLED / AUDIT_LOGGING_INCLUDE_PII: booking audit trail
package instrumentation
