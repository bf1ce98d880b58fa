package factoryopts

import (
	"testing"

	pynerr "github.com/pynector/pynector-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRejectAllowsRecognizedKeys(t *testing.T) {
	err := Reject(map[string]any{"a": 1, "b": "x"}, []string{"a", "b", "c"})
	assert.NoError(t, err)
}

func TestRejectFlagsUnrecognizedKeys(t *testing.T) {
	err := Reject(map[string]any{"a": 1, "surprise": true}, []string{"a"})
	require.Error(t, err)
	var cfgErr *pynerr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "surprise")
}

func TestRejectAllowsEmptyOptions(t *testing.T) {
	assert.NoError(t, Reject(nil, []string{"a"}))
}
