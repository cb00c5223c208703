package indicator

import (
	"sync"

	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
)

// Factory creates a new indicator instance with default configuration.
type Factory func() Indicator

// IndicatorRegistry manages all available indicator kinds. A registry hands out a fresh
// instance on every lookup, so one registry can be shared by parallel runs.
type IndicatorRegistry interface {
	RegisterIndicator(factory Factory) error
	GetIndicator(name types.IndicatorType) (Indicator, error)
	ListIndicators() []types.IndicatorType
	RemoveIndicator(name types.IndicatorType) error
}

// IndicatorRegistryV1 manages all available indicators.
type IndicatorRegistryV1 struct {
	factories map[types.IndicatorType]Factory
	mu        sync.RWMutex
}

// NewIndicatorRegistry creates a new empty indicator registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &IndicatorRegistryV1{
		factories: make(map[types.IndicatorType]Factory),
		mu:        sync.RWMutex{},
	}
}

// NewDefaultIndicatorRegistry creates a registry holding every built-in indicator.
func NewDefaultIndicatorRegistry() IndicatorRegistry {
	registry := NewIndicatorRegistry()

	for _, factory := range []Factory{NewMA, NewEMA, NewRSI, NewATR, NewMACD} {
		// built-in names are unique
		_ = registry.RegisterIndicator(factory)
	}

	return registry
}

// RegisterIndicator adds an indicator kind to the registry.
func (r *IndicatorRegistryV1) RegisterIndicator(factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := factory().Name()
	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "RegisterIndicator: indicator with name %s already registered", name)
	}

	r.factories[name] = factory

	return nil
}

// GetIndicator creates a new instance of the indicator kind.
func (r *IndicatorRegistryV1) GetIndicator(name types.IndicatorType) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "GetIndicator: indicator with name %s not found", name)
	}

	return factory(), nil
}

// ListIndicators returns a list of all registered indicator names.
func (r *IndicatorRegistryV1) ListIndicators() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	return names
}

// RemoveIndicator removes an indicator from the registry.
func (r *IndicatorRegistryV1) RemoveIndicator(name types.IndicatorType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "RemoveIndicator: indicator with name %s not found", name)
	}

	delete(r.factories, name)

	return nil
}
