package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestAuditLogger_LogBooking(t *testing.T) {
	start := time.Date(2025, 3, 11, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		config      AuditLoggingConfig
		record      *BookingRecord
		wantMsg     string
		wantEmail   bool
		wantNothing bool
	}{
		{
			name:    "success anonymized",
			config:  AuditLoggingConfig{Enabled: true},
			record:  NewBookingRecord("book", "alice@example.com").WithSlot(start, start.Add(30*time.Minute)).Complete(OutcomeBooked, "https://calendar/e1", nil),
			wantMsg: "booking_created",
		},
		{
			name:      "conflict with pii",
			config:    AuditLoggingConfig{Enabled: true, IncludePII: true},
			record:    NewBookingRecord("chat", "alice@example.com").WithAttendees(2).Complete(OutcomeConflict, "", errors.New("slot occupied")),
			wantMsg:   "booking_rejected",
			wantEmail: true,
		},
		{
			name:        "disabled",
			config:      AuditLoggingConfig{Enabled: false},
			record:      NewBookingRecord("api", "alice@example.com").Complete(OutcomeBooked, "", nil),
			wantNothing: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			al := NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)), tt.config)
			al.LogBooking(tt.record)

			out := buf.String()
			if tt.wantNothing {
				assert.Empty(t, out)
				return
			}
			assert.Contains(t, out, tt.wantMsg)
			assert.Equal(t, tt.wantEmail, bytes.Contains(buf.Bytes(), []byte("alice@example.com")))
		})
	}
}

func TestAuditLogger_NilSafe(t *testing.T) {
	var al *AuditLogger
	assert.NotPanics(t, func() { al.LogBooking(NewBookingRecord("api", "default")) })
	assert.NotPanics(t, func() { NewAuditLogger(nil, AuditLoggingConfig{Enabled: true}).LogBooking(nil) })
}

func TestBookingRecord_Attrs(t *testing.T) {
	br := NewBookingRecord("mcp", "default").Complete(OutcomeUpstream, "", errors.New("googleapi: 500"))

	keys := map[string]bool{}
	for _, a := range br.LogAttrs() {
		keys[a.Key] = true
	}
	assert.True(t, keys["channel"])
	assert.True(t, keys["error"])
	assert.False(t, keys["start"], "no slot was set")
	assert.False(t, br.Succeeded())
}

func TestBookingRecord_WithSpanContext(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	br := NewBookingRecord("api", "default").WithSpanContext(ctx)
	assert.Equal(t, traceID.String(), br.TraceID)
	assert.Equal(t, spanID.String(), br.SpanID)

	assert.Equal(t, traceID.String(), GetTraceID(ctx))
	assert.Empty(t, GetTraceID(context.Background()))
}
