package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

type scrollState struct {
	collection store.Collection
	query      store.Query
	sorts      []store.Sort
	size       int
	offset     int
	expires    time.Time
}

// ScrollOpen starts an offset cursor held in process memory.
func (r *Repository) ScrollOpen(ctx context.Context, c store.Collection, q store.Query, size int, ttl time.Duration, sorts ...store.Sort) (store.Page, error) {
	exists, err := r.IndexExists(ctx, c.Index)
	if err != nil {
		return store.Page{}, err
	}
	if !exists {
		return store.Page{}, fmt.Errorf("scroll %s: %w", c, store.ErrIndexNotFound)
	}

	state := &scrollState{collection: c, query: q, sorts: sorts, size: size}
	id := uuid.NewString()

	page, err := r.advance(ctx, state)
	if err != nil {
		return store.Page{}, err
	}

	r.scrollMu.Lock()
	r.evictExpired()
	state.expires = r.now().Add(ttl)
	r.scrolls[id] = state
	r.scrollMu.Unlock()

	page.ScrollID = id
	return page, nil
}

// ScrollNext returns the next page of an open cursor.
func (r *Repository) ScrollNext(ctx context.Context, scrollID string, ttl time.Duration) (store.Page, error) {
	r.scrollMu.Lock()
	state, ok := r.scrolls[scrollID]
	if ok && r.now().After(state.expires) {
		delete(r.scrolls, scrollID)
		ok = false
	}
	r.scrollMu.Unlock()
	if !ok {
		return store.Page{}, fmt.Errorf("scroll %s: %w", scrollID, store.ErrScrollNotFound)
	}

	page, err := r.advance(ctx, state)
	if err != nil {
		return store.Page{}, err
	}

	r.scrollMu.Lock()
	state.expires = r.now().Add(ttl)
	r.scrollMu.Unlock()

	page.ScrollID = scrollID
	return page, nil
}

func (r *Repository) advance(ctx context.Context, state *scrollState) (store.Page, error) {
	page, err := r.Search(ctx, state.collection, state.query, state.offset, state.size, state.sorts...)
	if err != nil {
		return store.Page{}, err
	}
	state.offset += len(page.Hits)
	return page, nil
}

func (r *Repository) evictExpired() {
	now := r.now()
	for id, s := range r.scrolls {
		if now.After(s.expires) {
			delete(r.scrolls, id)
		}
	}
}
