package agent

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

var ErrUnknownAgent = errors.New("unknown agent")

// Factory builds an agent using the given random source.
type Factory func(rng *rand.Rand) Agent

// Registry maps agent names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in agents.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("forward", func(*rand.Rand) Agent { return Forward{} })
	r.Register("random", func(rng *rand.Rand) Agent { return NewRandom(rng) })
	r.Register("wallhugger", func(rng *rand.Rand) Agent { return NewWallHugger(rng) })
	r.Register("stochastic", func(rng *rand.Rand) Agent { return NewStochastic(rng) })
	r.Register("space", func(*rand.Rand) Agent { return SpaceSeeker{} })
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New builds the named agent. A nil rng gets a time seeded source.
func (r *Registry) New(name string, rng *rand.Rand) (Agent, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return f(rng), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every non-empty name is registered. Empty names mark
// externally controlled players.
func (r *Registry) Validate(names []string) error {
	for _, name := range names {
		if name != "" && !r.Has(name) {
			return fmt.Errorf("%w: %q", ErrUnknownAgent, name)
		}
	}
	return nil
}
