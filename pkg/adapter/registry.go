package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Factory builds an unconnected Adapter. Implementations register one
// in their init() so a blank import is enough to make a backend available.
type Factory func(*slog.Logger) Adapter

type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var backends = &registry{factories: map[string]Factory{}}

func (r *registry) add(name string, f Factory) {
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
}

func (r *registry) lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register makes a backend constructible by name through New.
func Register(name string, factory Factory) {
	backends.add(name, factory)
}

// New builds the adapter named by cfg.Type. The logger is handed to the
// factory as-is; factories treat nil as discard.
func New(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, errors.New("adapter type not specified")
	}
	factory, ok := backends.lookup(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: backends.names()}
	}
	return factory(logger), nil
}

// List returns the registered backend names, sorted.
func List() []string { return backends.names() }

// IsRegistered reports whether a backend with this name exists.
func IsRegistered(name string) bool {
	_, ok := backends.lookup(name)
	return ok
}

// UnknownAdapterError is returned by New for a cfg.Type no backend claims.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unknown adapter type %q", e.Type)
	if len(e.Available) > 0 {
		fmt.Fprintf(&b, " (registered: %s)", strings.Join(e.Available, ", "))
	}
	b.WriteString("\nHint: check target.type in medallion.yaml")
	return b.String()
}
