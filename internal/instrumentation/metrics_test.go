package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, detailed bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	require.NoError(t, err)
	return m, reader
}

// counterPoints returns the data points of an int64 counter by name.
func counterPoints(t *testing.T, reader *sdkmetric.ManualReader, name string) []metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			return sum.DataPoints
		}
	}
	return nil
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "POST", "/book", 200, 100*time.Millisecond)
	m.RecordHTTPRequest(ctx, "POST", "/book", 200, 50*time.Millisecond)
	m.RecordHTTPRequest(ctx, "POST", "/book", 409, 50*time.Millisecond)

	points := counterPoints(t, reader, "http_requests_total")
	require.Len(t, points, 2)

	byStatus := map[string]int64{}
	for _, p := range points {
		status, _ := p.Attributes.Value(attribute.Key(attrStatus))
		byStatus[status.AsString()] = p.Value
	}
	assert.Equal(t, int64(2), byStatus["200"])
	assert.Equal(t, int64(1), byStatus["409"])
}

func TestMetrics_RecordCalendarOperation(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordCalendarOperation(ctx, OperationList, StatusSuccess, 20*time.Millisecond)
	m.RecordCalendarOperation(ctx, OperationCreate, StatusError, 20*time.Millisecond)

	assert.Len(t, counterPoints(t, reader, "calendar_api_operations_total"), 2)
}

func TestMetrics_RecordBooking_DetailedLabels(t *testing.T) {
	tests := []struct {
		name       string
		detailed   bool
		wantDomain bool
	}{
		{name: "coarse", detailed: false, wantDomain: false},
		{name: "detailed", detailed: true, wantDomain: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, reader := newTestMetrics(t, tt.detailed)
			m.RecordBooking(context.Background(), OutcomeBooked, "alice@example.com")

			points := counterPoints(t, reader, "bookings_total")
			require.Len(t, points, 1)

			domain, ok := points[0].Attributes.Value(attribute.Key(attrDomain))
			assert.Equal(t, tt.wantDomain, ok)
			if tt.wantDomain {
				assert.Equal(t, "example.com", domain.AsString())
			}
		})
	}
}

func TestMetrics_ToolAndLLM(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordToolInvocation(ctx, "chat", "bookEvent", StatusSuccess, time.Second)
	m.RecordLLMRequest(ctx, "openai/gpt-3.5-turbo-0613", StatusSuccess, 2*time.Second)
	m.RecordOAuthAuth(ctx, OAuthResultSuccess)

	assert.Len(t, counterPoints(t, reader, "tool_invocations_total"), 1)
	assert.Len(t, counterPoints(t, reader, "llm_requests_total"), 1)
	assert.Len(t, counterPoints(t, reader, "oauth_auth_total"), 1)
}

func TestMetrics_ZeroValueIsNoop(t *testing.T) {
	ctx := context.Background()
	var nilMetrics *Metrics

	for _, m := range []*Metrics{{}, nilMetrics} {
		assert.NotPanics(t, func() {
			m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
			m.RecordCalendarOperation(ctx, OperationList, StatusSuccess, time.Millisecond)
			m.RecordToolInvocation(ctx, "mcp", "findOpenSlots", StatusError, time.Millisecond)
			m.RecordLLMRequest(ctx, "m", StatusError, time.Millisecond)
			m.RecordBooking(ctx, OutcomeConflict, "")
			m.RecordOAuthAuth(ctx, OAuthResultFailure)
		})
	}
}

func TestExtractUserDomain(t *testing.T) {
	tests := map[string]string{
		"jane@example.com": "example.com",
		"default":          "service_account",
		"":                 "service_account",
		"invalid@":         "unknown",
		"no-at-sign":       "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtractUserDomain(in), in)
	}
}
