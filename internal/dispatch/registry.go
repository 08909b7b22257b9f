package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry errors
var (
	ErrCardNotFound  = errors.New("card not found")
	ErrDuplicateCard = errors.New("duplicate card name")
	ErrNilCard       = errors.New("card cannot be nil")
)

// Registry holds the host's virtual cards keyed by name.
type Registry struct {
	mu    sync.RWMutex
	cards map[string]*Dispatcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{cards: make(map[string]*Dispatcher)}
}

// Add registers d under its name.
func (r *Registry) Add(d *Dispatcher) error {
	if d == nil {
		return ErrNilCard
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cards[d.Name()]; exists {
		return fmt.Errorf("%s: %w", d.Name(), ErrDuplicateCard)
	}
	r.cards[d.Name()] = d
	return nil
}

// Get returns the card called name.
func (r *Registry) Get(name string) (*Dispatcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.cards[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrCardNotFound)
	}
	return d, nil
}

// Names returns the registered card names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.cards))
	for name := range r.cards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove drops name from the registry without closing it.
func (r *Registry) Remove(name string) (*Dispatcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.cards[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrCardNotFound)
	}
	delete(r.cards, name)
	return d, nil
}

// Close closes every card and empties the registry.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	cards := r.cards
	r.cards = make(map[string]*Dispatcher)
	r.mu.Unlock()

	var errs []error
	for _, d := range cards {
		if err := d.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
