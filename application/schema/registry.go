package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gal-dev/galrt/domain/ports"
)

type registryConfig struct {
	strictMode bool
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{strictMode: true}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryConfig)

// WithStrictMode makes Register fail when a kind is registered twice.
// Default is true.
func WithStrictMode(enabled bool) RegistryOption {
	return func(c *registryConfig) {
		c.strictMode = enabled
	}
}

// Registry holds the JSON schemas of the runtime's configuration documents.
type Registry struct {
	config  registryConfig
	mu      sync.RWMutex
	schemas map[string]string
}

var _ ports.SchemaRegistry = (*Registry)(nil)

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{config: cfg, schemas: make(map[string]string)}
}

// Register generates and stores the schema of model under kind.
func (r *Registry) Register(kind string, model interface{}) error {
	data, err := GenerateSchema(model)
	if err != nil {
		return fmt.Errorf("failed to generate schema for %s: %w", kind, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[kind]; exists && r.config.strictMode {
		return fmt.Errorf("schema %q already registered", kind)
	}
	r.schemas[kind] = string(data)
	return nil
}

// GetSchema returns the schema registered under kind.
func (r *Registry) GetSchema(kind string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[kind]
	return s, ok
}

// List returns the registered kinds in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
