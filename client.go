// Package pynector is a transport-agnostic client for request/response
// byte-oriented services (HTTP APIs, vendor AI SDKs), built around a
// sans-I/O Transport abstraction, structured concurrency, and optional
// OpenTelemetry observability.
//
// Basic usage:
//
//	client, err := pynector.New(pynector.WithTransportType("http"),
//		pynector.WithTransportOptions(map[string]any{"base_url": "https://api.example.com"}))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(context.Background())
//
//	resp, err := client.Request(context.Background(), []byte(`{"hello":"world"}`))
package pynector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pynector/pynector-go/internal/concurrency"
	"github.com/pynector/pynector-go/internal/envconfig"
	"github.com/pynector/pynector-go/internal/telemetry"
	pynerr "github.com/pynector/pynector-go/pkg/errors"
	"github.com/pynector/pynector-go/pkg/transport"
	"github.com/pynector/pynector-go/registry"
)

// defaultRequestTimeout bounds a single Request call absent an explicit
// WithTimeout option or "timeout" config entry.
const defaultRequestTimeout = 30 * time.Second

// Client is the façade over a single lazily-constructed Transport:
// construction is cheap, the transport is connected on first use, and
// Close releases it only if this Client created it.
type Client struct {
	cfg       clientConfig
	telemetry *telemetry.Facade

	initOnce  sync.Once
	transport transport.Transport
	initErr   error

	ownsTransport bool
	timeout       time.Duration
}

// New constructs a Client from the given options. No transport is
// connected yet — the first call to Request, BatchRequest, or Acquire
// triggers the lazy, single-winner construction.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{
		transportType:    "http",
		telemetryEnabled: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	telemetryEnabled := envconfig.LookupBool(cfg.instanceConfig, "telemetry_enabled", cfg.telemetryEnabled)

	serviceName := envconfig.Raw("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = "pynector"
	}

	var facade *telemetry.Facade
	var err error
	switch {
	case cfg.telemetryFacade != nil:
		facade = cfg.telemetryFacade
	case telemetryEnabled:
		facade, err = telemetry.New(context.Background(), telemetry.Config{
			Enabled:         true,
			Endpoint:        stringConfig(cfg.instanceConfig, "otel_endpoint", "localhost:4317"),
			ServiceName:     stringConfig(cfg.instanceConfig, "otel_service_name", serviceName),
			SampleRate:      float64Config(cfg.instanceConfig, "otel_sample_rate", 1.0),
			Insecure:        envconfig.LookupBool(cfg.instanceConfig, "otel_insecure", true),
			OTelLogsEnabled: envconfig.LookupBool(cfg.instanceConfig, "otel_logs_enabled", false),
		}, cfg.instanceConfig)
		if err != nil {
			return nil, pynerr.NewConfigurationError("failed to construct telemetry facade", err)
		}
	default:
		facade = telemetry.NewNoop()
	}

	timeout, err := resolveTimeout(cfg.instanceConfig)
	if err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg, telemetry: facade, timeout: timeout}

	if cfg.transport != nil {
		c.transport = cfg.transport
		c.ownsTransport = false
	} else {
		c.ownsTransport = true
	}

	return c, nil
}

// resolveTimeout validates the "timeout" config entry at construction
// time: an unparsable or non-positive value is a ConfigurationError, not
// a silent fall-back to the default.
func resolveTimeout(instanceConfig map[string]any) (time.Duration, error) {
	v := envconfig.Lookup(instanceConfig, "timeout", nil)
	var d time.Duration
	switch t := v.(type) {
	case nil:
		return defaultRequestTimeout, nil
	case time.Duration:
		d = t
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(t))
		if err != nil {
			return 0, pynerr.NewConfigurationError("invalid timeout value: "+t, err)
		}
		d = parsed
	default:
		return 0, pynerr.NewConfigurationError(fmt.Sprintf("invalid timeout value of type %T", v), nil)
	}
	if d <= 0 {
		return 0, pynerr.NewConfigurationError("timeout must be positive", nil)
	}
	return d, nil
}

func stringConfig(instanceConfig map[string]any, key, fallback string) string {
	v := envconfig.Lookup(instanceConfig, key, fallback)
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func float64Config(instanceConfig map[string]any, key string, fallback float64) float64 {
	v := envconfig.Lookup(instanceConfig, key, fallback)
	switch t := v.(type) {
	case float64:
		return t
	default:
		return fallback
	}
}

// ensureTransport performs the lazy, single-winner transport
// construction: two concurrent first callers both observe the same
// transport instance, or the same construction error, and exactly one
// Connect call happens.
func (c *Client) ensureTransport(ctx context.Context) (transport.Transport, error) {
	c.initOnce.Do(func() {
		t := c.transport
		if t == nil {
			built, err := registry.Default().CreateTransport(c.cfg.transportType, c.cfg.transportOptions)
			if err != nil {
				c.initErr = err
				return
			}
			t = built
		}
		if err := t.Connect(ctx); err != nil {
			c.initErr = err
			return
		}
		c.transport = t
	})
	if c.initErr != nil {
		return nil, c.initErr
	}
	return c.transport, nil
}

// Request sends data over the lazily-acquired transport and returns the
// fully accumulated response body, applying a per-call timeout (the
// transport.WithTimeout option, else the Client's configured default).
func (c *Client) Request(ctx context.Context, data []byte, opts ...transport.Option) ([]byte, error) {
	tr, err := c.ensureTransport(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := c.telemetry.Tracer.StartSpan(ctx, "pynector.request",
		telemetry.WithAttributes(attribute.String("request.id", telemetry.NewRequestID())))
	defer telemetry.Detach(span)

	timeout := c.timeout
	if o := transport.NewOptions(opts...); o.Timeout > 0 {
		timeout = o.Timeout
	}

	deadlineCtx, scope := concurrency.FailAfter(ctx, timeout)
	defer scope.Cancel()

	if err := tr.Send(deadlineCtx, data, opts...); err != nil {
		err = c.translateTimeout(scope, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	chunks, err := tr.Receive(deadlineCtx)
	if err != nil {
		err = c.translateTimeout(scope, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var out []byte
	for {
		chunk, err := chunks.Next(deadlineCtx)
		out = append(out, chunk...)
		if err == io.EOF {
			break
		}
		if err != nil {
			err = c.translateTimeout(scope, err)
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	return out, nil
}

// translateTimeout converts a bare context.DeadlineExceeded observed
// from the FailAfter scope into *errors.TimeoutError, preserving the
// original error via %w. A transport-level *errors.TimeoutError (or any
// other error) passes through unchanged.
func (c *Client) translateTimeout(scope *concurrency.DeadlineScope, err error) error {
	var te *pynerr.TimeoutError
	if errors.As(err, &te) {
		return err
	}
	if scope != nil && errors.Is(err, context.DeadlineExceeded) {
		return concurrency.TranslateDeadline(scope, err)
	}
	return err
}

// Close disconnects the Client's transport, but only if this Client
// constructed it — a caller-supplied transport (WithTransport) outlives
// the Client and is the caller's responsibility to close.
func (c *Client) Close(ctx context.Context) error {
	if !c.ownsTransport || c.transport == nil {
		return c.telemetry.Shutdown(ctx)
	}
	if err := c.transport.Disconnect(ctx); err != nil {
		return err
	}
	return c.telemetry.Shutdown(ctx)
}

// Acquire connects the Client's transport (triggering lazy construction
// if needed) and returns a release function for callers that prefer the
// request/defer-release idiom over an explicit Close, mirroring
// transport.Acquire.
func (c *Client) Acquire(ctx context.Context) (*Client, func(context.Context) error, error) {
	if _, err := c.ensureTransport(ctx); err != nil {
		return nil, nil, err
	}

	var once sync.Once
	var releaseErr error
	release := func(ctx context.Context) error {
		once.Do(func() {
			releaseErr = c.Close(ctx)
		})
		return releaseErr
	}
	return c, release, nil
}
