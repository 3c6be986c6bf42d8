package dataset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/datajar/datajar/internal/log"
)

// Registry holds named tables with a single active selection. The first
// registered table becomes active automatically; removing the active table
// promotes the oldest remaining one. The active profile is computed lazily
// and cached until the selection changes.
type Registry struct {
	mu     sync.RWMutex
	logger log.Logger

	order   []string
	tables  map[string]*Table
	active  string
	profile *Profile // cached profile of the active table
}

// NewRegistry creates an empty registry.
func NewRegistry(logger log.Logger) *Registry {
	return &Registry{
		logger: logger,
		tables: make(map[string]*Table),
	}
}

// Add registers a table under name. Names are unique; re-registering an
// existing name returns ErrDuplicateName. The first table added becomes
// the active selection.
func (r *Registry) Add(name string, t *Table) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if t == nil {
		return ErrNilTable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	r.tables[name] = t
	r.order = append(r.order, name)

	if r.active == "" {
		r.active = name
		r.profile = nil
	}

	r.logger.Debug("dataset registered",
		"name", name,
		"rows", t.NumRows(),
		"columns", t.NumCols(),
		"active", r.active)
	return nil
}

// Activate makes the named table the active selection and invalidates the
// cached profile. Returns ErrNotFound for unknown names.
func (r *Registry) Activate(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if r.active != name {
		r.active = name
		r.profile = nil
	}
	return nil
}

// Remove deletes the named table. Removing the active table promotes the
// oldest remaining table; removing the last table clears the selection.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	delete(r.tables, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if r.active == name {
		r.active = ""
		if len(r.order) > 0 {
			r.active = r.order[0]
		}
		r.profile = nil
		r.logger.Debug("active dataset removed", "removed", name, "promoted", r.active)
	}
	return nil
}

// List returns the registered names in insertion order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// ActiveName returns the name of the active table, if any.
func (r *Registry) ActiveName() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, r.active != ""
}

// Active returns the active table, if any.
func (r *Registry) Active() (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == "" {
		return nil, false
	}
	return r.tables[r.active], true
}

// ActiveProfile returns the profile of the active table, computing and
// caching it on first use. Returns nil when nothing is active.
func (r *Registry) ActiveProfile() *Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == "" {
		return nil
	}
	if r.profile == nil {
		r.profile = BuildProfile(r.tables[r.active])
	}
	return r.profile
}
