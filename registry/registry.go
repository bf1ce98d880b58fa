// Package registry is the name -> factory lookup used to construct a
// transport.Transport from configuration. Registration happens during
// process init; lookups are safe under concurrent access.
package registry

import (
	"sync"

	pynerr "github.com/pynector/pynector-go/pkg/errors"
	"github.com/pynector/pynector-go/pkg/transport"
)

// Factory constructs a Transport from a configuration map. Recognized
// keys are factory-specific; an unrecognized value for a known key
// should be rejected by the factory rather than silently ignored.
type Factory func(options map[string]any) (transport.Transport, error)

// Registry is a name -> Factory mapping. Registration is expected to
// happen during process init and is guarded by a mutex; lookups
// (CreateTransport, Names) are safe under concurrent access without
// additional caller synchronization.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New returns an empty Registry. Most callers should use Default
// instead, which comes pre-populated with the built-in transports.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register inserts factory under name. If name is already registered and
// replace is false, Register returns a *errors.ConfigurationError and
// leaves the existing registration untouched.
func (r *Registry) Register(name string, factory Factory, replace bool) error {
	if name == "" {
		return pynerr.NewConfigurationError("transport factory name must not be empty", nil)
	}
	if factory == nil {
		return pynerr.NewConfigurationError("transport factory must not be nil", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists && !replace {
		return pynerr.NewConfigurationError("transport factory already registered: "+name, nil)
	}
	r.factories[name] = factory
	return nil
}

// CreateTransport delegates to the factory registered under name.
// Unknown names return *errors.ConfigurationError.
func (r *Registry) CreateTransport(name string, options map[string]any) (transport.Transport, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, pynerr.NewConfigurationError("unknown transport type: "+name, nil)
	}
	return factory(options)
}

// Names returns a snapshot of every currently registered transport type
// name. The returned slice is owned by the caller.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the package-level Registry pre-populated with the
// built-in "http", "openai", and "anthropic" transport factories,
// assembled once on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New()
		registerBuiltins(defaultReg)
	})
	return defaultReg
}
