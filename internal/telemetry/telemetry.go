package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/CodeMonkeyCybersecurity/doppel/internal/config"
	"github.com/CodeMonkeyCybersecurity/doppel/pkg/scanners/idor"
	"github.com/CodeMonkeyCybersecurity/doppel/pkg/types"
)

// Telemetry records detection metrics. Implementations are safe for
// concurrent use.
type Telemetry interface {
	RecordClassified(paramType idor.ParamType)
	RecordProbes(count int)
	RecordPlan(duration float64, success bool)
	RecordVerdict(verdict idor.Verdict)
	RecordFinding(severity types.Severity)
	Close() error
}

type telemetry struct {
	tracer         trace.Tracer
	meter          metric.Meter
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	classifiedCounter metric.Int64Counter
	probeCounter      metric.Int64Counter
	planDuration      metric.Float64Histogram
	verdictCounter    metric.Int64Counter
	findingCounter    metric.Int64Counter
}

func New(ctx context.Context, cfg config.TelemetryConfig, version string) (Telemetry, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	var metricExporter sdkmetric.Exporter

	switch cfg.ExporterType {
	case "otlp":
		client := otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		exp, err := otlptrace.New(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporter = exp

		mexp, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		metricExporter = mexp
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	meter := mp.Meter(cfg.ServiceName)

	t := &telemetry{
		tracer:         tp.Tracer(cfg.ServiceName),
		meter:          meter,
		tracerProvider: tp,
		meterProvider:  mp,
	}

	if t.classifiedCounter, err = meter.Int64Counter("doppel.parameters.classified",
		metric.WithDescription("Parameters classified, by type"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	if t.probeCounter, err = meter.Int64Counter("doppel.probes.planned",
		metric.WithDescription("Probe requests planned"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	if t.planDuration, err = meter.Float64Histogram("doppel.plan.duration",
		metric.WithDescription("Time spent building a probe plan"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if t.verdictCounter, err = meter.Int64Counter("doppel.verdicts.total",
		metric.WithDescription("Verdicts decided, by outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	if t.findingCounter, err = meter.Int64Counter("doppel.findings.total",
		metric.WithDescription("Findings reported, by severity"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *telemetry) RecordClassified(paramType idor.ParamType) {
	t.classifiedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("param.type", string(paramType))))
}

func (t *telemetry) RecordProbes(count int) {
	t.probeCounter.Add(context.Background(), int64(count))
}

func (t *telemetry) RecordPlan(duration float64, success bool) {
	t.planDuration.Record(context.Background(), duration,
		metric.WithAttributes(attribute.Bool("plan.success", success)))
}

func (t *telemetry) RecordVerdict(verdict idor.Verdict) {
	t.verdictCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("verdict", verdict.String())))
}

func (t *telemetry) RecordFinding(severity types.Severity) {
	t.findingCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("finding.severity", string(severity))))
}

// Close flushes pending metrics and spans
func (t *telemetry) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(
		t.meterProvider.Shutdown(ctx),
		t.tracerProvider.Shutdown(ctx),
	)
}

type noopTelemetry struct{}

// NewNoop returns a Telemetry that discards everything
func NewNoop() Telemetry { return &noopTelemetry{} }

func (n *noopTelemetry) RecordClassified(paramType idor.ParamType) {}
func (n *noopTelemetry) RecordProbes(count int)                    {}
func (n *noopTelemetry) RecordPlan(duration float64, success bool) {}
func (n *noopTelemetry) RecordVerdict(verdict idor.Verdict)        {}
func (n *noopTelemetry) RecordFinding(severity types.Severity)     {}
func (n *noopTelemetry) Close() error                              { return nil }
