package synchro

import (
	"fmt"
	"slices"
	"sync"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/changes"
)

// Registry holds the actions of a scheduler, keyed by peer API and by collection.
type Registry struct {
	mu    sync.RWMutex
	byAPI map[string][]*Action
	byKey map[string]*Action
}

func NewRegistry() *Registry {
	return &Registry{
		byAPI: make(map[string][]*Action),
		byKey: make(map[string]*Action),
	}
}

// Register adds a. A collection can be registered once.
func (r *Registry) Register(a *Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[a.Key()]; ok {
		return fmt.Errorf("collection %s already registered", a.Key())
	}
	r.byKey[a.Key()] = a
	r.byAPI[a.API()] = append(r.byAPI[a.API()], a)
	return nil
}

// ForAPI returns the actions served by peers of api, in registration order.
func (r *Registry) ForAPI(api string) []*Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.byAPI[api])
}

// Get returns the action of an "index/type" key.
func (r *Registry) Get(key string) (*Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byKey[key]
	return a, ok
}

// APIs returns the sorted APIs having at least one action.
func (r *Registry) APIs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedAPIs()
}

// Actions returns every registered action.
func (r *Registry) Actions() []*Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Action, 0, len(r.byKey))
	for _, api := range r.sortedAPIs() {
		out = append(out, r.byAPI[api]...)
	}
	return out
}

// SourceFilter is the change feed filter covering the collections of api.
func (r *Registry) SourceFilter(api string) string {
	actions := r.ForAPI(api)
	keys := make([]string, 0, len(actions))
	for _, a := range actions {
		keys = append(keys, a.Key())
	}
	return changes.SourceFilter(keys)
}

func (r *Registry) sortedAPIs() []string {
	apis := make([]string, 0, len(r.byAPI))
	for api := range r.byAPI {
		apis = append(apis, api)
	}
	slices.Sort(apis)
	return apis
}
