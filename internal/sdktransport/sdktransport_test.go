package sdktransport

import (
	"errors"
	"testing"

	pynerr "github.com/pynector/pynector-go/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// vendorAuthenticationError stands in for a vendor SDK's own exception
// type, e.g. openai.AuthenticationError — only its dynamic type name
// matters to TranslateByClassName, not its identity.
type vendorAuthenticationError struct{ msg string }

func (e *vendorAuthenticationError) Error() string { return e.msg }

type vendorRateLimitError struct{ msg string }

func (e *vendorRateLimitError) Error() string { return e.msg }

type vendorSomethingElseError struct{ msg string }

func (e *vendorSomethingElseError) Error() string { return e.msg }

func TestTranslateByClassNameMatchesSubstring(t *testing.T) {
	err := &vendorAuthenticationError{msg: "invalid api key"}
	translated := TranslateByClassName(err)
	assert.True(t, errors.Is(translated, &pynerr.TransportError{Kind: pynerr.KindAuthentication}))
}

func TestTranslateByClassNameRateLimit(t *testing.T) {
	err := &vendorRateLimitError{msg: "slow down"}
	translated := TranslateByClassName(err)
	assert.True(t, errors.Is(translated, &pynerr.TransportError{Kind: pynerr.KindRateLimit}))
}

func TestTranslateByClassNameNoMatchReturnsNil(t *testing.T) {
	err := &vendorSomethingElseError{msg: "who knows"}
	assert.Nil(t, TranslateByClassName(err))
}

func TestTranslateByClassNameNilError(t *testing.T) {
	assert.Nil(t, TranslateByClassName(nil))
}
