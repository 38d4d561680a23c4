package entities

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/admingrid/admingrid/internal/config"
	"github.com/admingrid/admingrid/internal/grid"
)

// Registry resolves entity names to their effective definitions: the
// built-in catalogue with the config overrides applied.
type Registry struct {
	mu       sync.RWMutex
	base     []Definition
	entities map[string]Definition
	order    []string
	disabled map[string]bool
	grid     config.GridConfig
}

// NewRegistry creates a Registry from base definitions and cfg.
func NewRegistry(base []Definition, cfg *config.Config) *Registry {
	r := &Registry{base: slices.Clone(base)}
	r.Reload(cfg)
	return r
}

// Resolve looks up the effective definition of an entity.
func (r *Registry) Resolve(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.entities[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown entity: %q", name)
	}
	return d, nil
}

// Add registers or replaces a definition.
func (r *Registry) Add(d Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[d.Name]; !ok {
		r.order = append(r.order, d.Name)
	}
	r.entities[d.Name] = d
}

// Remove drops an entity. It returns false if the entity is unknown.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[name]; !ok {
		return false
	}
	delete(r.entities, name)
	delete(r.disabled, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	return true
}

// Disable hides an entity from the console. Returns false if not found.
func (r *Registry) Disable(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[name]; !ok {
		return false
	}
	r.disabled[name] = true
	return true
}

// Enable reverses Disable. Returns false if not found.
func (r *Registry) Enable(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[name]; !ok {
		return false
	}
	delete(r.disabled, name)
	return true
}

// IsDisabled returns whether an entity is currently disabled.
func (r *Registry) IsDisabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.disabled[name]
}

// List returns the enabled definitions in catalogue order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		if !r.disabled[name] {
			result = append(result, r.entities[name])
		}
	}
	return result
}

// Lookups returns the distinct lookup tables the enabled entities need. A
// table that is itself a registered entity is read through that entity's
// current query operation.
func (r *Registry) Lookups() []LookupSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var specs []LookupSpec
	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		for _, l := range r.entities[name].Lookups {
			if slices.ContainsFunc(specs, func(s LookupSpec) bool { return s.Table == l.Table }) {
				continue
			}
			if src, ok := r.entities[l.Table]; ok {
				l.OperationID = src.QueryOp
			}
			specs = append(specs, l)
		}
	}
	return specs
}

// Tuning returns the live grid settings for an entity.
func (r *Registry) Tuning(name string) grid.Tuning {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t := grid.Tuning{
		PageSize:          r.grid.PageSize,
		SearchDebounce:    r.grid.SearchDebounce,
		NotifyDuration:    r.grid.NotifyDuration,
		NumberedPageLimit: r.grid.NumberedPageLimit,
	}
	if d, ok := r.entities[name]; ok && d.PageSize > 0 {
		t.PageSize = d.PageSize
	}
	return t
}

// Reload rebuilds every definition from the base catalogue and cfg. Entities
// added at runtime and disabled flags are discarded.
func (r *Registry) Reload(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.grid = cfg.Grid
	r.entities = make(map[string]Definition, len(r.base))
	r.order = r.order[:0]
	r.disabled = make(map[string]bool)

	known := make(map[string]bool, len(r.base))
	for _, d := range r.base {
		known[d.Name] = true
		ec, ok := cfg.Entities[d.Name]
		if ok {
			d = override(d, ec, cfg.Grid)
			if ec.Disabled {
				r.disabled[d.Name] = true
			}
		} else if d.PageSize <= 0 {
			d.PageSize = cfg.Grid.PageSize
		}
		r.entities[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	for name := range cfg.Entities {
		if !known[name] {
			slog.Warn("config names unknown entity", "entity", name)
		}
	}
}

func override(d Definition, ec config.EntityConfig, gc config.GridConfig) Definition {
	if ec.QueryOp != "" {
		d.QueryOp = ec.QueryOp
	}
	if ec.UpdateOp != "" {
		d.UpdateOp = ec.UpdateOp
	}
	if ec.CreateOp != "" {
		d.CreateOp = ec.CreateOp
	}
	if ec.PageSize != nil || d.PageSize <= 0 {
		d.PageSize = ec.EffectivePageSize(gc)
	}
	if ec.StatusParam != "" {
		codes := grid.StatusCodes{Param: ec.StatusParam, Active: 1, Inactive: 2, Both: 3}
		if d.Status != nil {
			codes.Active, codes.Inactive, codes.Both = d.Status.Active, d.Status.Inactive, d.Status.Both
		}
		if ec.StatusCodes != nil {
			codes.Active, codes.Inactive, codes.Both = ec.StatusCodes.Active, ec.StatusCodes.Inactive, ec.StatusCodes.Both
		}
		d.Status = &codes
	}
	return d
}
