package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Resource attribute keys describing the scheduling deployment.
const (
	AttrTimeZone        = attribute.Key("calmate.time_zone")
	AttrCalendarMode    = attribute.Key("calmate.calendar_mode")
	AttrSurface         = attribute.Key("calmate.surface")
	AttrWindowStartHour = attribute.Key("calmate.slot_window.start_hour")
	AttrWindowEndHour   = attribute.Key("calmate.slot_window.end_hour")
)

// Provider owns the meter and tracer providers of one process.
type Provider struct {
	config         Config
	resource       *resource.Resource
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *Metrics
	prometheus     bool
	enabled        bool
}

// NewProvider validates config, builds the exporters and installs the
// providers globally. A disabled config yields a provider whose metrics
// recorder drops everything.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if !config.Enabled {
		return &Provider{config: config, metrics: &Metrics{}}, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttributes(config)...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	reader, err := newMetricReader(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}
	meterProvider := metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader))

	tracerProvider, err := newTracerProvider(ctx, config, res)
	if err != nil {
		if shutdownErr := meterProvider.Shutdown(ctx); shutdownErr != nil {
			err = errors.Join(err, shutdownErr)
		}
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	p := &Provider{
		config:         config,
		resource:       res,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		prometheus:     config.MetricsExporter == ExporterPrometheus,
		enabled:        true,
	}

	otel.SetMeterProvider(meterProvider)
	otel.SetTracerProvider(tracerProvider)

	p.metrics, err = NewMetrics(meterProvider.Meter(config.ServiceName), config.DetailedLabels)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
	}
	return p, nil
}

// resourceAttributes returns the service identity plus the deployment fields
// that are set.
func resourceAttributes(config Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	}

	instance := config.ServiceInstanceID
	if instance == "" {
		instance, _ = os.Hostname()
	}
	if instance != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(instance))
	}

	d := config.Deployment
	if d.TimeZone != "" {
		attrs = append(attrs, AttrTimeZone.String(d.TimeZone))
	}
	if d.CalendarMode != "" {
		attrs = append(attrs, AttrCalendarMode.String(d.CalendarMode))
	}
	if d.Surface != "" {
		attrs = append(attrs, AttrSurface.String(d.Surface))
	}
	if d.WindowEndHour != 0 {
		attrs = append(attrs,
			AttrWindowStartHour.Int(d.WindowStartHour),
			AttrWindowEndHour.Int(d.WindowEndHour),
		)
	}
	return attrs
}

func newMetricReader(ctx context.Context, config Config) (metric.Reader, error) {
	var exporter metric.Exporter
	switch config.MetricsExporter {
	case ExporterPrometheus, "":
		return prometheus.New()
	case ExporterOTLP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.OTLPEndpoint)}
		if config.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		var err error
		if exporter, err = otlpmetrichttp.New(ctx, opts...); err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
	case ExporterStdout:
		slog.Warn("stdout metrics exporter enabled, use for development only",
			"component", "instrumentation")
		var err error
		if exporter, err = stdoutmetric.New(); err != nil {
			return nil, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported metrics exporter: %s", config.MetricsExporter)
	}
	return metric.NewPeriodicReader(exporter, metric.WithInterval(DefaultMetricInterval)), nil
}

func newTracerProvider(ctx context.Context, config Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch config.TracingExporter {
	case ExporterNone, "":
		return sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.NeverSample()),
		), nil
	case ExporterOTLP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.OTLPEndpoint)}
		if config.OTLPInsecure {
			// Spans carry slot times and account domains.
			slog.Warn("OTLP insecure transport enabled, traces may contain sensitive metadata",
				"component", "instrumentation",
				"endpoint", config.OTLPEndpoint)
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	case ExporterStdout:
		slog.Warn("stdout traces exporter enabled, use for development only",
			"component", "instrumentation")
		exporter, err = stdouttrace.New()
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", config.TracingExporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s trace exporter: %w", config.TracingExporter, err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.TraceSamplingRate))),
	), nil
}

// Metrics returns the metrics recorder.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// NewNoopProvider returns a disabled provider whose metrics recorder drops
// everything. Used by commands that do not export telemetry.
func NewNoopProvider() *Provider {
	return &Provider{metrics: &Metrics{}}
}

// Resource returns the resource attached to every metric and span, or nil
// when instrumentation is disabled.
func (p *Provider) Resource() *resource.Resource {
	return p.resource
}

// Tracer returns a tracer for creating spans.
func (p *Provider) Tracer(name string) trace.Tracer {
	if !p.enabled || p.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.tracerProvider.Tracer(name)
}

// ServesPrometheus reports whether metrics are exposed through the Prometheus
// registry (and therefore need a scrape endpoint).
func (p *Provider) ServesPrometheus() bool {
	return p.enabled && p.prometheus
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	var errs []error
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Enabled returns true if instrumentation is enabled.
func (p *Provider) Enabled() bool {
	return p.enabled
}
