// Package telemetry wires OpenTelemetry tracing and metrics into the
// orchestrator. Every instrument and span is optional: callers that wire
// nothing get a NoOpProvider and pay no cost, mirroring the rest of the
// orchestrator's dependency-injection discipline (HaltStore, UsageLogger,
// Logger all default to inert no-ops too).
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"go.opentelemetry.io/otel/metric"
)

// Provider is the telemetry surface the orchestrator depends on. It is
// intentionally narrow: a span per logical unit of work, and a handful of
// named counters/histograms, rather than exposing the full OTel API to
// every package.
type Provider interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, Span)
	RecordTierCall(apiName string, tier int, status string, latency time.Duration)
	RecordCircuitTrip(apiName string)
}

// Span is the minimal span surface the orchestrator needs.
type Span interface {
	End()
	SetAttribute(key, value string)
	RecordError(err error)
}

// NoOpProvider discards everything. It is the default.
type NoOpProvider struct{}

func (NoOpProvider) StartSpan(ctx context.Context, _ string, _ map[string]string) (context.Context, Span) {
	return ctx, noOpSpan{}
}
func (NoOpProvider) RecordTierCall(string, int, string, time.Duration) {}
func (NoOpProvider) RecordCircuitTrip(string)                          {}

type noOpSpan struct{}

func (noOpSpan) End()                    {}
func (noOpSpan) SetAttribute(_, _ string) {}
func (noOpSpan) RecordError(error)       {}

// OTelProvider implements Provider using a real OTel tracer and meter.
type OTelProvider struct {
	tracer trace.Tracer
	meter  metric.Meter

	tierCallCounter    metric.Int64Counter
	tierLatencyHisto   metric.Float64Histogram
	circuitTripCounter metric.Int64Counter

	tp *sdktrace.TracerProvider
}

// NewOTelProvider wires a tracer+meter under the given service/instrumentation
// name. tp may be nil if the caller only wants metrics (e.g. in tests using
// the global noop tracer provider).
func NewOTelProvider(serviceName string, tp *sdktrace.TracerProvider) (*OTelProvider, error) {
	var tracer trace.Tracer
	if tp != nil {
		tracer = tp.Tracer(serviceName)
	} else {
		tracer = otel.Tracer(serviceName)
	}
	meter := otel.Meter(serviceName)

	tierCallCounter, err := meter.Int64Counter(
		"orchestrator.tier.calls",
		metric.WithDescription("count of per-API calls made during tier fan-out, labeled by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tier call counter: %w", err)
	}

	tierLatencyHisto, err := meter.Float64Histogram(
		"orchestrator.tier.call_latency_ms",
		metric.WithDescription("latency of a per-API call in milliseconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tier latency histogram: %w", err)
	}

	circuitTripCounter, err := meter.Int64Counter(
		"orchestrator.circuit.trips",
		metric.WithDescription("count of circuit breaker open transitions, labeled by API"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating circuit trip counter: %w", err)
	}

	return &OTelProvider{
		tracer:             tracer,
		meter:              meter,
		tierCallCounter:    tierCallCounter,
		tierLatencyHisto:   tierLatencyHisto,
		circuitTripCounter: circuitTripCounter,
		tp:                 tp,
	}, nil
}

func (p *OTelProvider) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, Span) {
	ctx, span := p.tracer.Start(ctx, name)
	for k, v := range attrs {
		span.SetAttributes(stringAttr(k, v))
	}
	return ctx, otelSpan{span}
}

func (p *OTelProvider) RecordTierCall(apiName string, tier int, status string, latency time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		stringAttr("api_name", apiName),
		intAttr("tier", tier),
		stringAttr("status", status),
	)
	p.tierCallCounter.Add(ctx, 1, attrs)
	p.tierLatencyHisto.Record(ctx, float64(latency.Milliseconds()), attrs)
}

func (p *OTelProvider) RecordCircuitTrip(apiName string) {
	p.circuitTripCounter.Add(context.Background(), 1, metric.WithAttributes(stringAttr("api_name", apiName)))
}

// Shutdown flushes and stops the tracer provider, if this provider owns one.
func (p *OTelProvider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End() { s.span.End() }
func (s otelSpan) SetAttribute(key, value string) {
	s.span.SetAttributes(stringAttr(key, value))
}
func (s otelSpan) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}

var _ Provider = (*OTelProvider)(nil)
var _ Provider = NoOpProvider{}
