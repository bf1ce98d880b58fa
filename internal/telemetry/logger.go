package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the structured logging facade. Debug/Info/Warning/Error map
// onto log/slog's levels; Critical maps to slog's Error level with an
// added severity field, since slog has no distinct critical level.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warning(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Critical(ctx context.Context, msg string, fields ...any)
}

// LoggerConfig configures the real slog-backed Logger.
type LoggerConfig struct {
	Level      slog.Level
	Output     io.Writer
	AddSource  bool
	JSONFormat bool

	// OTelLogProvider, when non-nil, is bridged alongside Output so every
	// record is emitted to both the local sink and the OTel Logs backend.
	OTelLogProvider *sdklog.LoggerProvider
}

// slogLogger wraps a *slog.Logger and enriches every record with the
// trace_id/span_id of the span active in ctx, when one is present.
type slogLogger struct {
	logger *slog.Logger
}

func newSlogLogger(cfg LoggerConfig) *slogLogger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.JSONFormat {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}
	if cfg.OTelLogProvider != nil {
		handler = &multiHandler{handlers: []slog.Handler{handler, newOTelLogHandler(cfg.OTelLogProvider)}}
	}
	return &slogLogger{logger: slog.New(handler)}
}

func traceFields(ctx context.Context) []any {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []any{"trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String()}
}

func (l *slogLogger) Debug(ctx context.Context, msg string, fields ...any) {
	l.logger.Debug(msg, append(traceFields(ctx), fields...)...)
}

func (l *slogLogger) Info(ctx context.Context, msg string, fields ...any) {
	l.logger.Info(msg, append(traceFields(ctx), fields...)...)
}

func (l *slogLogger) Warning(ctx context.Context, msg string, fields ...any) {
	l.logger.Warn(msg, append(traceFields(ctx), fields...)...)
}

func (l *slogLogger) Error(ctx context.Context, msg string, fields ...any) {
	l.logger.Error(msg, append(traceFields(ctx), fields...)...)
}

func (l *slogLogger) Critical(ctx context.Context, msg string, fields ...any) {
	fields = append(fields, "severity", "critical")
	l.logger.Error(msg, append(traceFields(ctx), fields...)...)
}

// noopLogger discards everything. It is zero-value safe: a caller who
// never configures telemetry pays no allocation cost beyond interface
// dispatch.
type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, fields ...any)    {}
func (noopLogger) Info(ctx context.Context, msg string, fields ...any)     {}
func (noopLogger) Warning(ctx context.Context, msg string, fields ...any)  {}
func (noopLogger) Error(ctx context.Context, msg string, fields ...any)    {}
func (noopLogger) Critical(ctx context.Context, msg string, fields ...any) {}
