package headers

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/errors"
)

// Registry is the append-only set of exported items. It is populated
// during initialisation and frozen before generation.
type Registry struct {
	names  map[string]struct{}
	items  []Item
	mu     sync.RWMutex
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register adds items. It fails on empty names, missing generators,
// duplicate names and after Freeze; nothing is added when any item fails.
func (r *Registry) Register(items ...Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New(errors.PhaseRegister, errors.KindFrozen).
			Detail("registry is frozen; register items before generating").
			Build()
	}

	batch := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.Name == "" {
			return errors.InvalidInput(errors.PhaseRegister, "item has no name")
		}
		if it.Generate == nil {
			return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				Path(it.Name).
				Detail("item has no generator").
				Build()
		}
		if _, dup := r.names[it.Name]; dup {
			return errors.Duplicate(errors.PhaseRegister, "item", it.Name)
		}
		if _, dup := batch[it.Name]; dup {
			return errors.Duplicate(errors.PhaseRegister, "item", it.Name)
		}
		batch[it.Name] = struct{}{}
	}

	for _, it := range items {
		r.names[it.Name] = struct{}{}
		r.items = append(r.items, it)
		Logger().Debug("item registered", zap.String("name", it.Name), zap.Stringer("kind", it.Kind))
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(items ...Item) {
	if err := r.Register(items...); err != nil {
		panic(err)
	}
}

// Freeze ends the registration phase. It is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Items returns the registered items sorted by name.
func (r *Registry) Items() []Item {
	r.mu.RLock()
	out := make([]Item, len(r.items))
	copy(out, r.items)
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the item named name.
func (r *Registry) Lookup(name string) (Item, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, it := range r.items {
		if it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}

// Len returns the number of registered items.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
