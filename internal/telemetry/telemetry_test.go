package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNoopFacadeDoesNotPanic(t *testing.T) {
	f := NewNoop()
	ctx, span := f.Tracer.StartSpan(context.Background(), "op")
	RecordError(span, assert.AnError)
	Detach(span)
	f.Logger.Info(ctx, "hello", "key", "value")
	f.Logger.Critical(ctx, "uh oh")

	require.NoError(t, f.Shutdown(context.Background()))
}

func TestNewRespectsOtelSdkDisabled(t *testing.T) {
	f, err := New(context.Background(), Config{Enabled: true, Endpoint: "localhost:4317"}, map[string]any{
		"otel_sdk_disabled": true,
	})
	require.NoError(t, err)
	require.NoError(t, f.Shutdown(context.Background()))
}

func TestNewDisabledByDefaultConfig(t *testing.T) {
	f, err := New(context.Background(), Config{Enabled: false}, nil)
	require.NoError(t, err)
	_, span := f.Tracer.StartSpan(context.Background(), "op")
	Detach(span)
}

func TestNewRequestIDIsUniquePerCall(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestSlogLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newSlogLogger(LoggerConfig{Level: slog.LevelDebug, Output: &buf, JSONFormat: true})

	logger.Info(context.Background(), "hello world", "key", "value")
	assert.Contains(t, buf.String(), "hello world")
	assert.Contains(t, buf.String(), "\"key\":\"value\"")
}

func TestCriticalAddsSeverityField(t *testing.T) {
	var buf bytes.Buffer
	logger := newSlogLogger(LoggerConfig{Level: slog.LevelDebug, Output: &buf, JSONFormat: true})

	logger.Critical(context.Background(), "fatal problem")
	assert.Contains(t, buf.String(), "\"severity\":\"critical\"")
}
