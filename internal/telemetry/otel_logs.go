package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/trace"
)

// newOTelLogExporterProvider dials an OTLP gRPC log exporter and wraps
// it in a batching *sdklog.LoggerProvider. The bridge forwards arbitrary
// slog records rather than one fixed event schema.
func newOTelLogExporterProvider(ctx context.Context, endpoint, serviceName string, insecure bool) (*sdklog.LoggerProvider, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}

	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, err
	}

	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	), nil
}

// otelLogHandler is an slog.Handler that forwards every record to an
// OTel Logs SDK logger, enriching each emitted record with the active
// span's trace_id/span_id the same way slogLogger enriches its own
// local-sink records (see traceFields in logger.go), so a record that
// goes to both sinks carries matching correlation IDs.
type otelLogHandler struct {
	logger otellog.Logger
	attrs  []slog.Attr
}

func newOTelLogHandler(provider *sdklog.LoggerProvider) *otelLogHandler {
	return &otelLogHandler{logger: provider.Logger(TracerName)}
}

func (h *otelLogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *otelLogHandler) Handle(ctx context.Context, record slog.Record) error {
	var rec otellog.Record
	rec.SetTimestamp(record.Time)
	rec.SetSeverity(slogLevelToOTel(record.Level))
	rec.SetBody(otellog.StringValue(record.Message))

	for _, a := range h.attrs {
		rec.AddAttributes(slogAttrToOTel(a))
	}
	record.Attrs(func(a slog.Attr) bool {
		rec.AddAttributes(slogAttrToOTel(a))
		return true
	})

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		rec.AddAttributes(
			otellog.String("trace_id", sc.TraceID().String()),
			otellog.String("span_id", sc.SpanID().String()),
		)
	}

	h.logger.Emit(ctx, rec)
	return nil
}

func (h *otelLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &otelLogHandler{logger: h.logger, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h *otelLogHandler) WithGroup(name string) slog.Handler {
	// Groups are flattened: the bridge has no nested-attribute concept of
	// its own, matching how traceFields already emits a flat key list.
	return h
}

func slogAttrToOTel(a slog.Attr) otellog.KeyValue {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return otellog.String(a.Key, v.String())
	case slog.KindInt64:
		return otellog.Int64(a.Key, v.Int64())
	case slog.KindUint64:
		return otellog.Int64(a.Key, int64(v.Uint64()))
	case slog.KindFloat64:
		return otellog.Float64(a.Key, v.Float64())
	case slog.KindBool:
		return otellog.Bool(a.Key, v.Bool())
	default:
		return otellog.String(a.Key, v.String())
	}
}

func slogLevelToOTel(level slog.Level) otellog.Severity {
	switch {
	case level >= slog.LevelError:
		return otellog.SeverityError
	case level >= slog.LevelWarn:
		return otellog.SeverityWarn
	case level >= slog.LevelInfo:
		return otellog.SeverityInfo
	default:
		return otellog.SeverityDebug
	}
}

// multiHandler fans a single slog record out to every handler in the
// list, letting a Logger write to its local sink (stdout JSON/text) and
// the OTel Logs bridge simultaneously.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
