package httptransport

import (
	"testing"

	pynerr "github.com/pynector/pynector-go/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestFactoryBuildsTransportFromOptions(t *testing.T) {
	tr, err := Factory(map[string]any{"base_url": "https://example.invalid", "max_retries": 2})
	require.NoError(t, err)
	require.NotNil(t, tr)
}

func TestFactoryRejectsUnrecognizedOption(t *testing.T) {
	_, err := Factory(map[string]any{"base_url": "https://example.invalid", "bogus_option": true})
	require.Error(t, err)
	var cfgErr *pynerr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
