package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OpenTelemetryConfig holds OpenTelemetry configuration.
type OpenTelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	TracingEnabled    bool
	OTLPTraceEndpoint string
	SamplingRate      float64

	MetricsEnabled bool

	ResourceAttributes map[string]string
}

// OpenTelemetryProvider provides unified tracing and metrics for the
// feed-collection pipeline, the HTTP surface, and persistence calls.
type OpenTelemetryProvider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *zap.Logger
	config         OpenTelemetryConfig
}

// NewOpenTelemetryProvider creates a new OpenTelemetry provider.
func NewOpenTelemetryProvider(config OpenTelemetryConfig, logger *zap.Logger) (*OpenTelemetryProvider, error) {
	provider := &OpenTelemetryProvider{
		logger: logger,
		config: config,
	}

	res, err := provider.createResource()
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if config.TracingEnabled {
		if err := provider.initializeTracing(res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if config.MetricsEnabled {
		if err := provider.initializeMetrics(res); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	// With metrics disabled, hand out a noop meter so BusinessMetrics
	// construction still succeeds and recording calls cost nothing.
	if provider.meter == nil {
		provider.meter = noop.NewMeterProvider().Meter(config.ServiceName)
	}

	logger.Info("opentelemetry provider initialized",
		zap.String("service", config.ServiceName),
		zap.String("version", config.ServiceVersion),
		zap.String("environment", config.Environment),
		zap.Bool("tracing_enabled", config.TracingEnabled),
		zap.Bool("metrics_enabled", config.MetricsEnabled),
	)

	return provider, nil
}

func (o *OpenTelemetryProvider) createResource() (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(o.config.ServiceName),
		semconv.ServiceVersion(o.config.ServiceVersion),
		semconv.DeploymentEnvironment(o.config.Environment),
	}

	for key, value := range o.config.ResourceAttributes {
		attrs = append(attrs, attribute.String(key, value))
	}

	return resource.New(
		context.Background(),
		resource.WithAttributes(attrs...),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithContainer(),
		resource.WithHost(),
	)
}

func (o *OpenTelemetryProvider) initializeTracing(res *resource.Resource) error {
	if o.config.OTLPTraceEndpoint == "" {
		o.logger.Warn("no OTLP trace endpoint configured, tracing stays a noop")
		return nil
	}

	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(o.config.OTLPTraceEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	o.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(o.config.SamplingRate)),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(o.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	o.tracer = otel.Tracer(
		o.config.ServiceName,
		trace.WithInstrumentationVersion(o.config.ServiceVersion),
		trace.WithSchemaURL(semconv.SchemaURL),
	)

	o.logger.Info("OTLP trace exporter configured", zap.String("endpoint", o.config.OTLPTraceEndpoint))

	return nil
}

func (o *OpenTelemetryProvider) initializeMetrics(res *resource.Resource) error {
	prometheusExporter, err := prometheus.New()
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	o.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(prometheusExporter),
	)

	otel.SetMeterProvider(o.meterProvider)

	o.meter = otel.Meter(
		o.config.ServiceName,
		metric.WithInstrumentationVersion(o.config.ServiceVersion),
		metric.WithSchemaURL(semconv.SchemaURL),
	)

	return nil
}

// Tracer returns the configured tracer.
func (o *OpenTelemetryProvider) Tracer() trace.Tracer {
	return o.tracer
}

// Meter returns the configured meter.
func (o *OpenTelemetryProvider) Meter() metric.Meter {
	return o.meter
}

// StartSpan starts a new span.
func (o *OpenTelemetryProvider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name, opts...)
}

// StartCollectionSpan starts a span for a feed collection cycle.
func (o *OpenTelemetryProvider) StartCollectionSpan(ctx context.Context, feedName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	spanAttrs := append([]attribute.KeyValue{
		attribute.String("feed.name", feedName),
	}, attrs...)

	return o.tracer.Start(ctx, fmt.Sprintf("feed.collect.%s", feedName),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(spanAttrs...),
	)
}

// StartExternalSpan starts a span for an external service call (the
// asset-inventory collaborator, a ticket system, a notification sink).
func (o *OpenTelemetryProvider) StartExternalSpan(ctx context.Context, serviceName, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	spanAttrs := append([]attribute.KeyValue{
		attribute.String("external.service", serviceName),
		attribute.String("external.operation", operation),
	}, attrs...)

	return o.tracer.Start(ctx, fmt.Sprintf("external.%s.%s", serviceName, operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(spanAttrs...),
	)
}

// InstrumentHTTPHandler instruments HTTP handlers with tracing and metrics.
func (o *OpenTelemetryProvider) InstrumentHTTPHandler(handler http.Handler, operation string) http.Handler {
	if o.tracer == nil {
		return handler
	}

	return otelhttp.NewHandler(handler, operation,
		otelhttp.WithTracerProvider(o.tracerProvider),
		otelhttp.WithMeterProvider(o.meterProvider),
	)
}

// CreateCounter creates a new counter metric.
func (o *OpenTelemetryProvider) CreateCounter(name, description, unit string) (metric.Int64Counter, error) {
	if o.meter == nil {
		return nil, fmt.Errorf("meter not initialized")
	}
	return o.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
}

// CreateHistogram creates a new histogram metric.
func (o *OpenTelemetryProvider) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	if o.meter == nil {
		return nil, fmt.Errorf("meter not initialized")
	}
	return o.meter.Float64Histogram(name, metric.WithDescription(description), metric.WithUnit(unit))
}

// RecordSpanEvent records an event in the current span.
func (o *OpenTelemetryProvider) RecordSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// RecordError records an error in the current span.
func (o *OpenTelemetryProvider) RecordError(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span != nil {
		span.RecordError(err, trace.WithAttributes(attrs...))
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanAttributes sets attributes on the current span.
func (o *OpenTelemetryProvider) SetSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// GetTraceID returns the trace ID from the current context, used to
// correlate a log line with the span that produced it.
func (o *OpenTelemetryProvider) GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span != nil {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current context.
func (o *OpenTelemetryProvider) GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span != nil {
		return span.SpanContext().SpanID().String()
	}
	return ""
}

// TraceIDFromContext returns the trace ID of the span carried in ctx, if
// any. Used by the logger to stitch log lines to the trace that produced
// them without requiring a provider reference.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// SpanIDFromContext returns the span ID of the span carried in ctx, if any.
func SpanIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasSpanID() {
		return ""
	}
	return sc.SpanID().String()
}

// Shutdown gracefully shuts down the OpenTelemetry provider.
func (o *OpenTelemetryProvider) Shutdown(ctx context.Context) error {
	var errs []error

	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}

	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	o.logger.Info("opentelemetry provider shutdown completed")
	return nil
}

// BusinessMetrics carries the domain counters and histograms an AETIM
// deployment watches: threats ingested, associations scored, reports
// rendered, notifications dispatched.
type BusinessMetrics struct {
	provider *OpenTelemetryProvider

	threatsIngested      metric.Int64Counter
	associationsCreated  metric.Int64Counter
	riskAssessmentsRun   metric.Int64Counter
	reportsGenerated     metric.Int64Counter
	notificationsSent    metric.Int64Counter

	ingestionDuration metric.Float64Histogram
	scoringDuration    metric.Float64Histogram
}

// NewBusinessMetrics creates AETIM's business-specific telemetry.
func NewBusinessMetrics(provider *OpenTelemetryProvider) (*BusinessMetrics, error) {
	bm := &BusinessMetrics{provider: provider}

	var err error

	if bm.threatsIngested, err = provider.CreateCounter(
		"business.threats.ingested.total", "Total number of threats ingested from feeds", "1",
	); err != nil {
		return nil, err
	}

	if bm.associationsCreated, err = provider.CreateCounter(
		"business.associations.created.total", "Total number of threat-asset associations created", "1",
	); err != nil {
		return nil, err
	}

	if bm.riskAssessmentsRun, err = provider.CreateCounter(
		"business.risk_assessments.run.total", "Total number of risk assessments computed", "1",
	); err != nil {
		return nil, err
	}

	if bm.reportsGenerated, err = provider.CreateCounter(
		"business.reports.generated.total", "Total number of reports and tickets generated", "1",
	); err != nil {
		return nil, err
	}

	if bm.notificationsSent, err = provider.CreateCounter(
		"business.notifications.sent.total", "Total number of notifications dispatched", "1",
	); err != nil {
		return nil, err
	}

	if bm.ingestionDuration, err = provider.CreateHistogram(
		"business.ingestion.duration", "Duration of a single feed ingestion cycle", "ms",
	); err != nil {
		return nil, err
	}

	if bm.scoringDuration, err = provider.CreateHistogram(
		"business.scoring.duration", "Duration of risk scoring for one association", "ms",
	); err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordCollectionCycle records one finished feed-collection run and the
// threats it ingested.
func (bm *BusinessMetrics) RecordCollectionCycle(ctx context.Context, feedName string, ingested int, duration time.Duration) {
	attrs := []attribute.KeyValue{attribute.String("feed.name", feedName)}
	bm.threatsIngested.Add(ctx, int64(ingested), metric.WithAttributes(attrs...))
	bm.ingestionDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	bm.provider.RecordSpanEvent(ctx, "feed.collection_completed", attrs...)
}

// RecordAssociationCreated records a threat-asset association event.
func (bm *BusinessMetrics) RecordAssociationCreated(ctx context.Context, threatID, assetID string) {
	attrs := []attribute.KeyValue{
		attribute.String("threat.id", threatID),
		attribute.String("asset.id", assetID),
	}
	bm.associationsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
	bm.provider.RecordSpanEvent(ctx, "association.created", attrs...)
}

// RecordRiskAssessment records a risk scoring run.
func (bm *BusinessMetrics) RecordRiskAssessment(ctx context.Context, associationID string, duration time.Duration) {
	attrs := []attribute.KeyValue{attribute.String("association.id", associationID)}
	bm.riskAssessmentsRun.Add(ctx, 1, metric.WithAttributes(attrs...))
	bm.scoringDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	bm.provider.RecordSpanEvent(ctx, "risk.assessed", attrs...)
}

// RecordReportGenerated records a report or ticket generation event.
func (bm *BusinessMetrics) RecordReportGenerated(ctx context.Context, kind string) {
	attrs := []attribute.KeyValue{attribute.String("report.kind", kind)}
	bm.reportsGenerated.Add(ctx, 1, metric.WithAttributes(attrs...))
	bm.provider.RecordSpanEvent(ctx, "report.generated", attrs...)
}

// RecordNotificationSent records a notification dispatch event.
func (bm *BusinessMetrics) RecordNotificationSent(ctx context.Context, channel string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	attrs := []attribute.KeyValue{
		attribute.String("notification.channel", channel),
		attribute.String("notification.status", status),
	}
	bm.notificationsSent.Add(ctx, 1, metric.WithAttributes(attrs...))
	bm.provider.RecordSpanEvent(ctx, "notification.sent", attrs...)
}
