// Package telemetry is the optional observability facade: a Tracer and a
// Logger, each selected once at construction time as either a real
// OpenTelemetry-backed implementation or a no-op, so every call site can
// call through the interface unconditionally regardless of whether
// telemetry is configured.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName identifies pynector's own spans among others in a shared
// trace backend.
const TracerName = "pynector"

// Span is the subset of trace.Span call sites in this module need.
type Span interface {
	End(options ...trace.SpanEndOption)
	RecordError(err error, options ...trace.EventOption)
	SetAttributes(kv ...attribute.KeyValue)
	SpanContext() trace.SpanContext
}

// SpanOption configures a started span.
type SpanOption func(*spanConfig)

type spanConfig struct {
	attrs []attribute.KeyValue
	kind  trace.SpanKind
}

// WithAttributes attaches attribute.KeyValue pairs to the span at start time.
func WithAttributes(attrs ...attribute.KeyValue) SpanOption {
	return func(c *spanConfig) { c.attrs = append(c.attrs, attrs...) }
}

// WithSpanKind sets the span's kind (defaults to internal).
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(c *spanConfig) { c.kind = kind }
}

// Tracer starts spans. Exactly one of the real or no-op implementations
// is installed at construction time (see New in telemetry.go).
type Tracer interface {
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
}

// wrappedTracer adapts a go.opentelemetry.io/otel/trace.Tracer to the
// Tracer interface. The same wrapper backs both the real and no-op
// variants: the no-op variant wraps a tracer from OpenTelemetry's own
// trace/noop provider, so no separate no-op type is needed, and the
// global provider a real variant installs never reaches it.
type wrappedTracer struct {
	tracer trace.Tracer
}

func (t *wrappedTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span) {
	cfg := &spanConfig{kind: trace.SpanKindClient}
	for _, opt := range opts {
		opt(cfg)
	}
	ctx, span := t.tracer.Start(ctx, name, trace.WithSpanKind(cfg.kind), trace.WithAttributes(cfg.attrs...))
	return ctx, span
}

// TracerConfig selects and configures the real tracer backend.
type TracerConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRate  float64
	Insecure    bool
}

// tracerProvider owns the SDK resources created for a real Tracer, so
// Shutdown can flush and release them.
type tracerProvider struct {
	sdk *sdktrace.TracerProvider
}

func newRealTracer(ctx context.Context, cfg TracerConfig) (Tracer, *tracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("",
			attribute.String("service.name", cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return &wrappedTracer{tracer: provider.Tracer(TracerName)}, &tracerProvider{sdk: provider}, nil
}

func newNoopTracer() Tracer {
	return &wrappedTracer{tracer: noop.NewTracerProvider().Tracer(TracerName)}
}

func (p *tracerProvider) Shutdown(ctx context.Context) error {
	if p == nil || p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}

// Attach returns a context carrying span as its active span, mirroring
// trace.ContextWithSpan.
func Attach(ctx context.Context, span Span) context.Context {
	s, ok := span.(trace.Span)
	if !ok {
		return ctx
	}
	return trace.ContextWithSpan(ctx, s)
}

// Detach ends span. Safe to call from a deferred statement so it fires
// even when the enclosing call exits via panic or early error return.
func Detach(span Span) {
	span.End()
}

// RecordError records err on span and marks it failed.
func RecordError(span Span, err error) {
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("error", true))
}

// SpanFromContext extracts the active span, which is a no-op span if
// none was attached.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// NewRequestID mints a correlation ID for a single Request/BatchRequest
// call. Unlike a span ID, it survives the no-op tracer path, where
// OTel's own ID generator never runs.
func NewRequestID() string {
	return uuid.New().String()
}
