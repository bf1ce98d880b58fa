package registry

import (
	"github.com/pynector/pynector-go/internal/httptransport"
	"github.com/pynector/pynector-go/internal/sdktransport/anthropicadapter"
	"github.com/pynector/pynector-go/internal/sdktransport/openaiadapter"
)

// registerBuiltins wires the three transport types this module ships
// out of the box. Panics are impossible here since these names are
// unique and the registry is freshly constructed.
func registerBuiltins(r *Registry) {
	_ = r.Register("http", httptransport.Factory, false)
	_ = r.Register("openai", openaiadapter.Factory, false)
	_ = r.Register("anthropic", anthropicadapter.Factory, false)
}
