package telemetry

import (
	"context"
	"log/slog"

	"github.com/pynector/pynector-go/internal/envconfig"
)

// Facade bundles the Tracer and Logger selected for a Client, plus the
// teardown hooks for the real variant's exporter connections (traces and,
// when enabled, the OTel Logs bridge).
type Facade struct {
	Tracer Tracer
	Logger Logger

	shutdown    func(context.Context) error
	logShutdown func(context.Context) error
}

// Config selects and configures the Facade.
type Config struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRate  float64
	Insecure    bool

	LogLevel      slog.Level
	LogJSONFormat bool

	// OTelLogsEnabled additionally bridges every Logger record to an
	// OTLP log exporter at Endpoint, alongside the local stdout sink.
	OTelLogsEnabled bool
}

// New builds a Facade. OTEL_SDK_DISABLED=true (an explicit instance
// config entry or PYNECTOR_OTEL_SDK_DISABLED still wins over it) forces
// the no-op variant regardless of cfg.Enabled, matching the
// OpenTelemetry SDK's own escape hatch for disabling telemetry at
// deploy time.
func New(ctx context.Context, cfg Config, instanceConfig map[string]any) (*Facade, error) {
	disabled := envconfig.LookupBool(instanceConfig, "otel_sdk_disabled",
		envconfig.RawBool("OTEL_SDK_DISABLED", false))
	if disabled || !cfg.Enabled {
		return &Facade{Tracer: newNoopTracer(), Logger: noopLogger{}}, nil
	}

	tracer, provider, err := newRealTracer(ctx, TracerConfig{
		Enabled:     true,
		Endpoint:    cfg.Endpoint,
		ServiceName: cfg.ServiceName,
		SampleRate:  cfg.SampleRate,
		Insecure:    cfg.Insecure,
	})
	if err != nil {
		return nil, err
	}

	loggerCfg := LoggerConfig{
		Level:      cfg.LogLevel,
		JSONFormat: cfg.LogJSONFormat,
	}

	var logShutdown func(context.Context) error
	if cfg.OTelLogsEnabled {
		lp, err := newOTelLogExporterProvider(ctx, cfg.Endpoint, cfg.ServiceName, cfg.Insecure)
		if err != nil {
			return nil, err
		}
		logShutdown = lp.Shutdown
		loggerCfg.OTelLogProvider = lp
	}

	logger := newSlogLogger(loggerCfg)

	return &Facade{
		Tracer:      tracer,
		Logger:      logger,
		shutdown:    provider.Shutdown,
		logShutdown: logShutdown,
	}, nil
}

// NewNoop returns a Facade whose Tracer and Logger both discard
// everything, for callers that construct a Client with telemetry
// explicitly disabled.
func NewNoop() *Facade {
	return &Facade{Tracer: newNoopTracer(), Logger: noopLogger{}}
}

// Shutdown releases the real variant's exporter resources (traces and,
// if enabled, the OTel Logs bridge). A no-op Facade's Shutdown is itself
// a no-op.
func (f *Facade) Shutdown(ctx context.Context) error {
	if f == nil {
		return nil
	}
	var err error
	if f.shutdown != nil {
		err = f.shutdown(ctx)
	}
	if f.logShutdown != nil {
		if logErr := f.logShutdown(ctx); logErr != nil && err == nil {
			err = logErr
		}
	}
	return err
}
