package game

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Args carries game-specific constructor arguments, e.g. "pile=15".
type Args map[string]string

// Int returns the integer value of key or def when it is absent.
func (a Args) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("game argument %s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}

// Factory builds a fresh Game. Every call must return an independent instance.
type Factory func(Args) (Game, error)

// Registry maps game names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Factory returns the factory registered under name.
func (r *Registry) Factory(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown game %q (known: %v)", name, r.namesLocked())
	}
	return f, nil
}

// Build constructs the named game.
func (r *Registry) Build(name string, args Args) (Game, error) {
	f, err := r.Factory(name)
	if err != nil {
		return nil, err
	}
	g, err := f(args)
	if err != nil {
		return nil, fmt.Errorf("failed to build game %s: %w", name, err)
	}
	return g, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
