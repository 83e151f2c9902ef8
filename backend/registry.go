package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/pyramid"
)

// Backend names.
const (
	Vulkan = "vulkan"
	Noop   = "noop"
)

// Common backend errors.
var (
	// ErrNotAvailable is returned when a registered backend cannot be used
	// on this system.
	ErrNotAvailable = errors.New("backend: not available")

	// ErrUnknown is returned for names that were never registered.
	ErrUnknown = errors.New("backend: unknown backend")
)

// Factory returns the instance factory of a backend, or an error when the
// backend is unusable here.
type Factory func() (pyramid.InstanceFactory, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for Default (first available wins).
	backendPriority = []string{Vulkan, Noop}
)

// Register registers a backend factory with the given name.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the sorted names of registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns the instance factory of the named backend.
func Get(name string) (pyramid.InstanceFactory, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknown, name, Available())
	}
	f, err := factory()
	if err != nil {
		return nil, fmt.Errorf("backend %q: %w", name, err)
	}
	return f, nil
}

// Default returns the best available backend by priority, then any other
// registered backend in name order.
func Default() (string, pyramid.InstanceFactory, error) {
	tried := make(map[string]bool)
	candidates := append(append([]string(nil), backendPriority...), Available()...)
	for _, name := range candidates {
		if tried[name] {
			continue
		}
		tried[name] = true
		if !IsRegistered(name) {
			continue
		}
		f, err := Get(name)
		if err == nil {
			return name, f, nil
		}
		pyramid.Logger().Debug("backend: skipping", "name", name, "err", err)
	}
	return "", nil, ErrNotAvailable
}
