package warps

import (
	"sort"
	"sync"
)

// Registries holds one Registry per world, created on first access.
type Registries struct {
	mu      sync.Mutex
	byWorld map[string]*Registry
	factory func() *Registry
}

func NewRegistries() *Registries {
	return &Registries{byWorld: map[string]*Registry{}, factory: NewRegistry}
}

// For returns the registry of worldID, creating an empty one if needed.
func (rs *Registries) For(worldID string) *Registry {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r := rs.byWorld[worldID]
	if r == nil {
		r = rs.factory()
		rs.byWorld[worldID] = r
	}
	return r
}

// Attach installs a registry restored from storage, replacing any existing one.
func (rs *Registries) Attach(worldID string, r *Registry) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.byWorld[worldID] = r
}

// Drop forgets the registry of an unloaded world.
func (rs *Registries) Drop(worldID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.byWorld, worldID)
}

func (rs *Registries) WorldIDs() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]string, 0, len(rs.byWorld))
	for id := range rs.byWorld {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
