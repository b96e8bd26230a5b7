package instrumentation

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: calmate)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// ServiceInstanceID is the unique instance identifier (default: hostname)
	ServiceInstanceID string

	// Enabled determines if instrumentation is active (default: true).
	// INSTRUMENTATION_ENABLED=false disables metrics and tracing.
	Enabled bool

	// MetricsExporter is one of prometheus (default), otlp or stdout.
	MetricsExporter string

	// TracingExporter is one of none (default), otlp or stdout.
	TracingExporter string

	// OTLPEndpoint is the collector address without scheme, e.g. localhost:4318.
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio, 0.0 to 1.0 (default: 0.1).
	TraceSamplingRate float64

	// DetailedLabels adds the account domain to tool and booking metrics.
	// Keep disabled in production to bound cardinality.
	DetailedLabels bool

	// Deployment describes how this process books meetings. It is attached
	// to every metric and span as resource attributes.
	Deployment Deployment

	// AuditLogging configures the booking audit trail.
	AuditLogging AuditLoggingConfig
}

// Deployment is the scheduling setup of one process.
type Deployment struct {
	// TimeZone is the IANA name every booking is normalised to.
	TimeZone string

	// CalendarMode is one of CalendarModeService, CalendarModePerUser or
	// CalendarModeCaller.
	CalendarMode string

	// Surface names the command serving requests, e.g. SurfaceHTTP.
	Surface string

	// WindowStartHour and WindowEndHour bound the slot search.
	WindowStartHour int
	WindowEndHour   int
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	Enabled bool

	// IncludePII writes full account emails to the audit log. When false
	// (default) only anonymized identifiers are logged.
	IncludePII bool
}

// DefaultConfig returns a Config read from the OTEL_* and instrumentation
// environment variables. Deployment is left for the caller to fill in.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString("OTEL_SERVICE_NAME", "calmate"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: envString("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:           envParsed("INSTRUMENTATION_ENABLED", true, strconv.ParseBool),
		MetricsExporter:   envString("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   envString("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      envParsed("OTEL_EXPORTER_OTLP_INSECURE", false, strconv.ParseBool),
		TraceSamplingRate: envParsed("OTEL_TRACES_SAMPLER_ARG", 0.1, parseFloat),
		DetailedLabels:    envParsed("METRICS_DETAILED_LABELS", false, strconv.ParseBool),
		AuditLogging: AuditLoggingConfig{
			Enabled:    envParsed("AUDIT_LOGGING_ENABLED", true, strconv.ParseBool),
			IncludePII: envParsed("AUDIT_LOGGING_INCLUDE_PII", false, strconv.ParseBool),
		},
	}
}

var (
	metricsExporters = []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	tracingExporters = []string{ExporterNone, ExporterOTLP, ExporterStdout}
	calendarModes    = []string{CalendarModeService, CalendarModePerUser, CalendarModeCaller}
)

// Validate checks if the configuration is valid. Empty exporter and
// deployment fields are allowed.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}
	if err := oneOf("metrics exporter", c.MetricsExporter, metricsExporters); err != nil {
		return err
	}
	if err := oneOf("tracing exporter", c.TracingExporter, tracingExporters); err != nil {
		return err
	}
	if c.OTLPEndpoint == "" && (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) {
		return fmt.Errorf("OTLP endpoint is required for the otlp exporter; set OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	return c.Deployment.validate()
}

func (d Deployment) validate() error {
	if err := oneOf("calendar mode", d.CalendarMode, calendarModes); err != nil {
		return err
	}
	if d.TimeZone != "" {
		if _, err := time.LoadLocation(d.TimeZone); err != nil {
			return fmt.Errorf("invalid deployment time zone %q: %w", d.TimeZone, err)
		}
	}
	if d.WindowEndHour != 0 && d.WindowStartHour >= d.WindowEndHour {
		return fmt.Errorf("slot window %d-%d is empty", d.WindowStartHour, d.WindowEndHour)
	}
	return nil
}

func oneOf(what, value string, allowed []string) error {
	if value == "" || slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("invalid %s %q, must be one of: %v", what, value, allowed)
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envParsed returns the parsed value of key, or fallback when the variable is
// unset or does not parse.
func envParsed[T any](key string, fallback T, parse func(string) (T, error)) T {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := parse(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// Constants for metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	// DefaultMetricInterval is the push interval of the otlp and stdout
	// metric exporters.
	DefaultMetricInterval = 10 * time.Second
)

// Calendar modes.
const (
	// CalendarModeService books every meeting on the service-account calendar.
	CalendarModeService = "service"
	// CalendarModePerUser adds Google sign-in for users who connect an account.
	CalendarModePerUser = "per-user"
	// CalendarModeCaller books on the calendar of the signed-in MCP caller.
	CalendarModeCaller = "caller"
)

// Surfaces.
const (
	SurfaceHTTP          = "http"
	SurfaceMCPStdio      = "mcp-stdio"
	SurfaceMCPStreamable = "mcp-streamable-http"
)
