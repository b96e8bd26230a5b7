package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/calmate/internal/logging"
)

// BookingRecord captures one booking attempt for the audit trail.
//
// # Privacy Considerations
//
// Account contains PII (an email address) unless it is the shared service
// account. LogAttrs hashes it; LogAuditAttrs writes it in full.
type BookingRecord struct {
	// Channel is the entry point: "api", "book", "chat" or "mcp"
	Channel string

	// Account is the calendar account ("default" or an email)
	Account string

	// Requested slot
	Start time.Time
	End   time.Time

	// Attendees invited, if any
	Attendees int

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Outcome   string
	Error     string
	Link      string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewBookingRecord creates a BookingRecord with timing started.
// Call Complete when the booking finishes.
func NewBookingRecord(channel, account string) *BookingRecord {
	return &BookingRecord{
		Channel:   channel,
		Account:   account,
		StartTime: time.Now(),
	}
}

// WithSlot sets the requested time range.
func (br *BookingRecord) WithSlot(start, end time.Time) *BookingRecord {
	br.Start = start
	br.End = end
	return br
}

// WithAttendees sets the number of invited attendees.
func (br *BookingRecord) WithAttendees(n int) *BookingRecord {
	br.Attendees = n
	return br
}

// WithSpanContext extracts trace context from the current span.
func (br *BookingRecord) WithSpanContext(ctx context.Context) *BookingRecord {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		br.TraceID = span.SpanContext().TraceID().String()
		br.SpanID = span.SpanContext().SpanID().String()
	}
	return br
}

// Complete marks the booking as finished with the given outcome.
func (br *BookingRecord) Complete(outcome, link string, err error) *BookingRecord {
	br.Duration = time.Since(br.StartTime)
	br.Outcome = outcome
	br.Link = link
	if err != nil {
		br.Error = err.Error()
	}
	return br
}

// Succeeded reports whether the event was created.
func (br *BookingRecord) Succeeded() bool {
	return br.Outcome == OutcomeBooked
}

// LogAttrs returns slog attributes with the account anonymized.
func (br *BookingRecord) LogAttrs() []slog.Attr {
	return br.attrs(logging.Account(br.Account))
}

// LogAuditAttrs returns slog attributes including the full account email.
//
// # Security Warning
//
// This method includes PII. Route audit logs to storage with appropriate
// access controls.
func (br *BookingRecord) LogAuditAttrs() []slog.Attr {
	return br.attrs(slog.String(logging.KeyAccount, br.Account))
}

func (br *BookingRecord) attrs(account slog.Attr) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("channel", br.Channel),
		account,
		slog.String("outcome", br.Outcome),
		slog.Duration(logging.KeyDuration, br.Duration),
	}

	if !br.Start.IsZero() {
		attrs = append(attrs,
			slog.String("start", br.Start.Format(time.RFC3339)),
			slog.String("end", br.End.Format(time.RFC3339)),
		)
	}
	if br.Attendees > 0 {
		attrs = append(attrs, slog.Int("attendees", br.Attendees))
	}
	if br.Link != "" {
		attrs = append(attrs, slog.String("link", br.Link))
	}
	if br.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", br.TraceID))
	}
	if br.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", br.SpanID))
	}
	if br.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, br.Error))
	}

	return attrs
}

// AuditLogger writes the booking audit trail.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given configuration.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogBooking writes one audit entry. Nil receivers are ignored.
func (al *AuditLogger) LogBooking(br *BookingRecord) {
	if al == nil || !al.enabled || br == nil {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = br.LogAuditAttrs()
	} else {
		attrs = br.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if br.Succeeded() {
		al.logger.Info("booking_created", args...)
	} else {
		al.logger.Warn("booking_rejected", args...)
	}
}
