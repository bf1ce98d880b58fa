package pynector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pynector/pynector-go/internal/telemetry"
)

func TestOptionsApplyOverDefaults(t *testing.T) {
	cfg := clientConfig{transportType: "http", telemetryEnabled: true}

	ft := &fakeTransport{}
	opts := []Option{
		WithTransport(ft),
		WithTransportType("anthropic"),
		WithTransportOptions(map[string]any{"model": "claude-3"}),
		WithTelemetry(false),
		WithConfig(map[string]any{"timeout": "5s"}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	assert.Same(t, ft, cfg.transport)
	assert.Equal(t, "anthropic", cfg.transportType)
	assert.Equal(t, "claude-3", cfg.transportOptions["model"])
	assert.False(t, cfg.telemetryEnabled)
	assert.Equal(t, "5s", cfg.instanceConfig["timeout"])
}

func TestNewDefaultsToHTTPTransportType(t *testing.T) {
	c, err := New(WithTelemetry(false))
	assert.NoError(t, err)
	assert.Equal(t, "http", c.cfg.transportType)
	assert.True(t, c.ownsTransport)
}

func TestNewWithExplicitTransportDoesNotOwnIt(t *testing.T) {
	ft := &fakeTransport{}
	c, err := New(WithTransport(ft), WithTelemetry(false))
	assert.NoError(t, err)
	assert.False(t, c.ownsTransport)
}

func withTelemetryFacade(f *telemetry.Facade) Option {
	return func(c *clientConfig) { c.telemetryFacade = f }
}

func TestNewRejectsMalformedTimeoutConfig(t *testing.T) {
	_, err := New(WithTelemetry(false), WithConfig(map[string]any{"timeout": "not-a-duration"}))
	assert.Error(t, err)

	_, err = New(WithTelemetry(false), WithConfig(map[string]any{"timeout": "-5s"}))
	assert.Error(t, err)
}
