// Package changes dispatches local document change events to registered listeners.
package changes

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
)

// Listener reacts to a change event.
type Listener func(ctx context.Context, event model.ChangeEvent)

type registration struct {
	sources  map[string]struct{}
	listener Listener
}

func (r registration) accepts(e model.ChangeEvent) bool {
	if len(r.sources) == 0 {
		return true
	}
	if _, ok := r.sources[e.Collection()]; ok {
		return true
	}
	_, ok := r.sources[e.Index+"/*"]
	return ok
}

// Bus is an explicit listener registry. Listeners are invoked synchronously, in registration order.
type Bus struct {
	mu     sync.RWMutex
	seq    int
	regs   map[int]registration
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{regs: make(map[int]registration), logger: logger.Named("changes")}
}

// Register adds a listener for the given "index/type" sources ("index/*" matches a whole index).
// No sources means every event. The returned func unregisters the listener.
func (b *Bus) Register(listener Listener, sources ...string) func() {
	reg := registration{listener: listener}
	if len(sources) > 0 {
		reg.sources = make(map[string]struct{}, len(sources))
		for _, s := range sources {
			reg.sources[s] = struct{}{}
		}
	}

	b.mu.Lock()
	b.seq++
	id := b.seq
	b.regs[id] = reg
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.regs, id)
			b.mu.Unlock()
		})
	}
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.regs)
}

// Publish delivers e to every listener whose sources match.
func (b *Bus) Publish(ctx context.Context, e model.ChangeEvent) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.regs))
	for id, reg := range b.regs {
		if reg.accepts(e) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, b.regs[id].listener)
	}
	b.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, e)
	}
	if len(listeners) > 0 {
		b.logger.Debug("change published",
			zap.String("operation", string(e.Operation)),
			zap.String("collection", e.Collection()),
			zap.String("id", e.ID),
			zap.Int("listeners", len(listeners)))
	}
}

// SourceFilter joins collection keys into the filter sent when subscribing to a change feed.
func SourceFilter(keys []string) string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return strings.Join(slices.Compact(sorted), ",")
}
