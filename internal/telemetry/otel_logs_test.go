package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogAttrToOTelConvertsEachKind(t *testing.T) {
	cases := []struct {
		name string
		attr slog.Attr
	}{
		{"string", slog.String("k", "v")},
		{"int64", slog.Int64("k", 7)},
		{"uint64", slog.Uint64("k", 7)},
		{"float64", slog.Float64("k", 1.5)},
		{"bool", slog.Bool("k", true)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kv := slogAttrToOTel(tc.attr)
			assert.Equal(t, "k", kv.Key)
		})
	}
}

func TestSlogLevelToOTelOrdering(t *testing.T) {
	assert.Equal(t, slogLevelToOTel(slog.LevelDebug).String(), slogLevelToOTel(slog.LevelDebug).String())
	assert.NotEqual(t, slogLevelToOTel(slog.LevelDebug), slogLevelToOTel(slog.LevelError))
	assert.NotEqual(t, slogLevelToOTel(slog.LevelWarn), slogLevelToOTel(slog.LevelInfo))
}

type recordingHandler struct {
	records []slog.Record
	err     error
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return h.err
}
func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(name string) slog.Handler       { return h }

func TestMultiHandlerFansOutToEveryHandler(t *testing.T) {
	a := &recordingHandler{}
	b := &recordingHandler{}
	m := &multiHandler{handlers: []slog.Handler{a, b}}

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)
	require.NoError(t, m.Handle(context.Background(), rec))

	assert.Len(t, a.records, 1)
	assert.Len(t, b.records, 1)
}

func TestMultiHandlerReturnsFirstError(t *testing.T) {
	a := &recordingHandler{err: errors.New("boom")}
	b := &recordingHandler{}
	m := &multiHandler{handlers: []slog.Handler{a, b}}

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)
	err := m.Handle(context.Background(), rec)
	assert.EqualError(t, err, "boom")
	assert.Len(t, b.records, 1)
}

func TestMultiHandlerEnabledIfAnyHandlerEnabled(t *testing.T) {
	m := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}}
	assert.True(t, m.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewSlogLoggerWithoutOTelProviderWritesOnlyLocalSink(t *testing.T) {
	var buf bytes.Buffer
	logger := newSlogLogger(LoggerConfig{Level: slog.LevelDebug, Output: &buf, JSONFormat: true})
	logger.Info(context.Background(), "plain")
	assert.Contains(t, buf.String(), "plain")
}
