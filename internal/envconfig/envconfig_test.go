package envconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLookupInstanceConfigWins(t *testing.T) {
	t.Setenv("PYNECTOR_TIMEOUT", "99")
	cfg := map[string]any{"timeout": 5}
	got := Lookup(cfg, "timeout", 1)
	assert.Equal(t, 5, got)
}

func TestLookupFallsBackToEnv(t *testing.T) {
	t.Setenv("PYNECTOR_MAX_CONCURRENCY", "7")
	got := Lookup(nil, "max_concurrency", "3")
	assert.Equal(t, "7", got)
}

func TestLookupFallsBackToDefault(t *testing.T) {
	got := Lookup(nil, "unset_key_xyz", "fallback")
	assert.Equal(t, "fallback", got)
}

func TestLookupBool(t *testing.T) {
	t.Setenv("PYNECTOR_TELEMETRY_ENABLED", "false")
	assert.False(t, LookupBool(nil, "telemetry_enabled", true))

	assert.True(t, LookupBool(map[string]any{"flag": true}, "flag", false))
	assert.True(t, LookupBool(map[string]any{"flag": "1"}, "flag", false))
	assert.Equal(t, true, LookupBool(nil, "not_set_at_all", true))
}

func TestLookupInt(t *testing.T) {
	t.Setenv("PYNECTOR_RETRIES", "not-a-number")
	assert.Equal(t, 3, LookupInt(nil, "retries", 3)) // malformed falls back

	assert.Equal(t, 42, LookupInt(map[string]any{"n": 42}, "n", 0))
	assert.Equal(t, 42, LookupInt(map[string]any{"n": "42"}, "n", 0))
}

func TestLookupDuration(t *testing.T) {
	t.Setenv("PYNECTOR_TIMEOUT_DURATION", "30s")
	assert.Equal(t, 30*time.Second, LookupDuration(nil, "timeout_duration", time.Second))

	assert.Equal(t, 2*time.Minute, LookupDuration(map[string]any{"d": 2 * time.Minute}, "d", 0))
	assert.Equal(t, time.Second, LookupDuration(map[string]any{"d": "garbage"}, "d", time.Second))
}
