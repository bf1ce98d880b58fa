// Package sdktransport defines the Adapter contract vendor AI SDK
// transports implement (internal/sdktransport/openaiadapter,
// internal/sdktransport/anthropicadapter), plus the shared vendor-error
// translation helper both adapters use.
package sdktransport

import (
	"context"
	"reflect"
	"strings"

	pynerr "github.com/pynector/pynector-go/pkg/errors"
	"github.com/pynector/pynector-go/pkg/message"
	"github.com/pynector/pynector-go/pkg/transport"
)

// Adapter is the vendor-SDK-facing contract: a single-shot Complete call
// and a streaming Stream call, both operating on the opaque wire
// envelope rather than a vendor-specific request/response type.
type Adapter interface {
	Complete(ctx context.Context, prompt message.Message, opts ...transport.Option) (message.Message, error)
	Stream(ctx context.Context, prompt message.Message, opts ...transport.Option) (transport.Chunks, error)
}

// classNameTranslations maps a substring of a vendor error's
// module-qualified class name (its dynamic Go type name, since Go has no
// runtime notion of a "class") to a taxonomy constructor. Entries are
// tried in order; the first substring match wins.
var classNameTranslations = []struct {
	substr      string
	constructor func(message string, cause error) *pynerr.TransportError
}{
	{"AuthenticationError", pynerr.NewAuthenticationError},
	{"PermissionDeniedError", pynerr.NewPermissionError},
	{"PermissionError", pynerr.NewPermissionError},
	{"RateLimitError", func(msg string, cause error) *pynerr.TransportError {
		return pynerr.NewRateLimitError(msg, nil, cause)
	}},
	{"InvalidRequestError", pynerr.NewInvalidRequestError},
	{"BadRequestError", pynerr.NewInvalidRequestError},
	{"NotFoundError", pynerr.NewInvalidRequestError},
	{"APIConnectionError", pynerr.NewConnectionError},
	{"APITimeoutError", pynerr.NewConnectionTimeoutError},
	{"InternalServerError", pynerr.NewServerError},
}

// TranslateByClassName inspects err's dynamic type name (its
// module-qualified class name, in the vocabulary of SDKs built around
// exception hierarchies) rather than asserting against a specific vendor
// type, so a new vendor error type that merely follows the same naming
// convention translates correctly without this package importing the
// vendor SDK's types. A nil-returning fallback signals the caller should
// fall back to HTTP-status-based classification instead.
func TranslateByClassName(err error) *pynerr.TransportError {
	if err == nil {
		return nil
	}
	typeName := reflect.TypeOf(err).String()
	for _, t := range classNameTranslations {
		if strings.Contains(typeName, t.substr) {
			return t.constructor(err.Error(), err)
		}
	}
	return nil
}
