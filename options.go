package pynector

import (
	"github.com/pynector/pynector-go/internal/telemetry"
	"github.com/pynector/pynector-go/pkg/transport"
)

// clientConfig accumulates the Option values passed to New.
type clientConfig struct {
	transport        transport.Transport
	transportType    string
	transportOptions map[string]any
	telemetryEnabled bool
	instanceConfig   map[string]any

	// telemetryFacade overrides the facade New would build, so tests can
	// observe spans through an in-memory exporter.
	telemetryFacade *telemetry.Facade
}

// Option configures a Client at construction time.
type Option func(*clientConfig)

// WithTransport supplies an already-constructed Transport. The Client
// does not own it: Close will not disconnect a caller-supplied
// transport.
func WithTransport(t transport.Transport) Option {
	return func(c *clientConfig) { c.transport = t }
}

// WithTransportType selects which registered transport factory builds
// the Client's transport lazily, on first use. Defaults to "http".
func WithTransportType(name string) Option {
	return func(c *clientConfig) { c.transportType = name }
}

// WithTransportOptions supplies the options map passed to the selected
// transport factory.
func WithTransportOptions(options map[string]any) Option {
	return func(c *clientConfig) { c.transportOptions = options }
}

// WithTelemetry enables or disables the telemetry facade. Enabled by
// default; WithTelemetry(false) forces the no-op Tracer/Logger variant
// regardless of OTEL_* configuration.
func WithTelemetry(enabled bool) Option {
	return func(c *clientConfig) { c.telemetryEnabled = enabled }
}

// WithConfig supplies the shared instance configuration consulted by
// internal/envconfig.Lookup for timeout/max_concurrency/telemetry
// settings, taking precedence over PYNECTOR_* environment variables.
func WithConfig(config map[string]any) Option {
	return func(c *clientConfig) { c.instanceConfig = config }
}
