package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/irisvox/irisvox/pkg/transport"
)

// ErrTransportNotRegistered is returned by [Registry.CreateTransport] when no
// factory has been registered under the requested transport name.
var ErrTransportNotRegistered = errors.New("config: transport not registered")

// TransportFactory constructs a [transport.Transport] from its configuration
// block. The API key is passed separately because it comes from the
// environment, never from the config file.
type TransportFactory func(cfg TransportConfig, apiKey string) (transport.Transport, error)

// Registry maps transport names to their constructor functions. It is safe
// for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	transports map[string]TransportFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		transports: make(map[string]TransportFactory),
	}
}

// RegisterTransport registers a factory under name, replacing any previous
// registration for that name.
func (r *Registry) RegisterTransport(name string, factory TransportFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports[name] = factory
}

// CreateTransport instantiates the transport selected by cfg.Name.
func (r *Registry) CreateTransport(cfg TransportConfig, apiKey string) (transport.Transport, error) {
	r.mu.RLock()
	factory, ok := r.transports[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTransportNotRegistered, cfg.Name)
	}
	return factory(cfg, apiKey)
}

// Names returns the registered transport names in unspecified order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.transports))
	for name := range r.transports {
		names = append(names, name)
	}
	return names
}
