// Package factoryopts validates a registry.Factory's options map against
// its recognized key set. It is a leaf package (no dependency on
// registry or any concrete transport) so every Factory implementation —
// internal/httptransport, internal/sdktransport/openaiadapter, and
// internal/sdktransport/anthropicadapter — can import it without
// introducing a cycle back through registry, which itself imports all
// three.
package factoryopts

import (
	"fmt"
	"sort"
	"strings"

	pynerr "github.com/pynector/pynector-go/pkg/errors"
)

// Reject returns a *pynerr.ConfigurationError naming every key in
// options that is not present in recognized, per the registry's
// contract that an unrecognized option key is rejected rather than
// silently dropped. A nil error means every key was recognized.
func Reject(options map[string]any, recognized []string) error {
	allowed := make(map[string]struct{}, len(recognized))
	for _, k := range recognized {
		allowed[k] = struct{}{}
	}

	var unknown []string
	for k := range options {
		if _, ok := allowed[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Strings(unknown)
	return pynerr.NewConfigurationError(
		fmt.Sprintf("unrecognized option key(s): %s", strings.Join(unknown, ", ")),
		nil,
	)
}
