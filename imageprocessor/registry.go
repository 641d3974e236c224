package imageprocessor

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"photosearch/logging"
)

// Registry maintains a registry of vision routines keyed by name
type Registry struct {
	routines map[string]Routine
	mutex    sync.RWMutex
}

// NewRegistry creates a registry preloaded with the built-in routines
func NewRegistry() *Registry {
	registry := NewEmptyRegistry()

	registry.Register(Identity())
	registry.Register(Grayscale())
	registry.Register(Blur(DefaultBlurKernel))
	registry.Register(Edges(DefaultEdgeLow, DefaultEdgeHigh))
	registry.Register(Rectangles(DefaultRectangleOptions()))

	return registry
}

// NewEmptyRegistry creates a registry without any routines
func NewEmptyRegistry() *Registry {
	return &Registry{
		routines: make(map[string]Routine),
	}
}

// Register adds a routine, replacing any routine with the same name
func (r *Registry) Register(routine Routine) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := strings.ToLower(routine.Name())
	if _, exists := r.routines[name]; exists {
		logging.LogWarning("Replacing registered routine %s", name)
	}
	r.routines[name] = routine
}

// Get returns the routine registered under name
func (r *Registry) Get(name string) (Routine, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	routine, ok := r.routines[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoutine, name)
	}
	return routine, nil
}

// Names returns the sorted names of all registered routines
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.routines))
	for name := range r.routines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Processor returns a processor for the named routine
func (r *Registry) Processor(name string) (*Processor, error) {
	routine, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return New(routine), nil
}
