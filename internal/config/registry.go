package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/soundfield/pkg/capture"
)

// ErrBackendNotRegistered is returned by [Registry.CreateSource] when no
// factory has been registered under the requested backend name.
var ErrBackendNotRegistered = errors.New("config: capture backend not registered")

// SourceFactory builds a capture source that publishes its readings to pub.
type SourceFactory func(pub *capture.Publisher, cfg CaptureConfig) (capture.Source, error)

// Registry maps capture backend names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]SourceFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]SourceFactory),
	}
}

// RegisterBackend registers a capture backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterBackend(name string, factory SourceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = factory
}

// Backends returns the names of all registered backends.
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	return names
}

// CreateSource instantiates a capture source using the factory registered
// under cfg.Backend. Returns [ErrBackendNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateSource(pub *capture.Publisher, cfg CaptureConfig) (capture.Source, error) {
	r.mu.RLock()
	factory, ok := r.backends[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, cfg.Backend)
	}
	return factory(pub, cfg)
}
