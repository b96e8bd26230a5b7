package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calmate/internal/instrumentation"
)

func TestNewMetricsServer(t *testing.T) {
	tests := []struct {
		name        string
		config      MetricsServerConfig
		errContains string
	}{
		{
			name: "valid config",
			config: MetricsServerConfig{
				Addr:                    ":9090",
				Enabled:                 true,
				InstrumentationProvider: createTestProvider(t, instrumentation.ExporterPrometheus),
			},
		},
		{
			name: "default addr",
			config: MetricsServerConfig{
				Enabled:                 true,
				InstrumentationProvider: createTestProvider(t, instrumentation.ExporterPrometheus),
			},
		},
		{
			name: "nil provider",
			config: MetricsServerConfig{
				Addr:    ":9090",
				Enabled: true,
			},
			errContains: "instrumentation provider is required",
		},
		{
			name: "disabled provider",
			config: MetricsServerConfig{
				Addr:                    ":9090",
				Enabled:                 true,
				InstrumentationProvider: createDisabledProvider(t),
			},
			errContains: "instrumentation provider is not enabled",
		},
		{
			name: "push exporter",
			config: MetricsServerConfig{
				Addr:                    ":9090",
				Enabled:                 true,
				InstrumentationProvider: createTestProvider(t, instrumentation.ExporterStdout),
			},
			errContains: "not prometheus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewMetricsServer(tt.config)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, server)
			assert.NotEmpty(t, server.Addr())
		})
	}
}

func TestMetricsServer_Handler(t *testing.T) {
	provider := createTestProvider(t, instrumentation.ExporterPrometheus)
	provider.Metrics().RecordBooking(context.Background(), instrumentation.OutcomeBooked, "")

	server, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    ":0",
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bookings_total")

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsServer_ShutdownWithoutStart(t *testing.T) {
	server, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    ":9090",
		Enabled:                 true,
		InstrumentationProvider: createTestProvider(t, instrumentation.ExporterPrometheus),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, server.Shutdown(ctx))
}

func TestMetricsServer_Addr(t *testing.T) {
	server, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    ":9091",
		Enabled:                 true,
		InstrumentationProvider: createTestProvider(t, instrumentation.ExporterPrometheus),
	})
	require.NoError(t, err)
	assert.Equal(t, ":9091", server.Addr())
}

// Helper functions

func createTestProvider(t *testing.T, metricsExporter string) *instrumentation.Provider {
	t.Helper()
	ctx := context.Background()
	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: metricsExporter,
		TracingExporter: instrumentation.ExporterNone,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = provider.Shutdown(ctx)
	})
	return provider
}

func createDisabledProvider(t *testing.T) *instrumentation.Provider {
	t.Helper()
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	require.NoError(t, err)
	return provider
}
