package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestSpans(t *testing.T) {
	recorder := withRecorder(t)
	ctx := context.Background()

	_, span := StartCalendarSpan(ctx, OperationList, "primary")
	EndSpan(span, nil)

	_, span = StartToolSpan(ctx, "bookEvent")
	EndSpan(span, errors.New("boom"))

	_, span = StartLLMSpan(ctx, "test-model")
	EndSpan(span, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 3)

	assert.Equal(t, "calendar.list", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)

	assert.Equal(t, "tool.bookEvent", ended[1].Name())
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "boom", ended[1].Status().Description)

	assert.Equal(t, "llm.chat_completion", ended[2].Name())
}

func TestStartSpan_IDs(t *testing.T) {
	withRecorder(t)

	ctx, span := StartSpan(context.Background(), "test")
	defer span.End()

	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotEmpty(t, GetSpanID(ctx))
}
