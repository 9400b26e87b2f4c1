// Package memory implements store.DocumentStore in process memory.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

type document struct {
	source  json.RawMessage
	decoded map[string]any
}

type scrollCursor struct {
	hits    []store.Hit
	offset  int
	size    int
	total   int64
	expires time.Time
}

// Store keeps collections in maps guarded by a single mutex.
type Store struct {
	mu      sync.RWMutex
	indices map[string]struct{}
	docs    map[store.Collection]map[string]document
	scrolls map[string]*scrollCursor
	now     func() time.Time

	// FailIDs makes BulkWrite report a per-item failure for these ids.
	FailIDs map[string]error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		indices: make(map[string]struct{}),
		docs:    make(map[store.Collection]map[string]document),
		scrolls: make(map[string]*scrollCursor),
		now:     time.Now,
		FailIDs: make(map[string]error),
	}
}

var _ store.DocumentStore = (*Store)(nil)

func (s *Store) IndexExists(_ context.Context, index string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indices[index]
	return ok, nil
}

func (s *Store) CreateIndex(_ context.Context, index string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indices[index] = struct{}{}
	return nil
}

func (s *Store) Exists(_ context.Context, c store.Collection, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[c][id]
	return ok, nil
}

func (s *Store) Create(_ context.Context, c store.Collection, id string, doc json.RawMessage, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[c][id]; ok {
		return fmt.Errorf("create %s/%s: %w", c, id, store.ErrAlreadyExists)
	}
	return s.put(c, id, doc)
}

func (s *Store) Update(_ context.Context, c store.Collection, id string, doc json.RawMessage, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(c, id, doc)
}

func (s *Store) Delete(_ context.Context, c store.Collection, id string, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[c][id]; !ok {
		return fmt.Errorf("delete %s/%s: %w", c, id, store.ErrNotFound)
	}
	delete(s.docs[c], id)
	return nil
}

func (s *Store) BulkWrite(_ context.Context, ops []store.BulkOp) ([]store.BulkItemResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]store.BulkItemResult, 0, len(ops))
	for _, op := range ops {
		res := store.BulkItemResult{ID: op.ID}
		if failErr, ok := s.FailIDs[op.ID]; ok {
			res.Err = failErr
			results = append(results, res)
			continue
		}
		switch op.Action {
		case store.BulkDelete:
			delete(s.docs[op.Collection], op.ID)
		case store.BulkCreate:
			if _, ok := s.docs[op.Collection][op.ID]; ok {
				res.Err = store.ErrAlreadyExists
				break
			}
			res.Err = s.put(op.Collection, op.ID, op.Source)
		default:
			res.Err = s.put(op.Collection, op.ID, op.Source)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Store) GetByID(_ context.Context, c store.Collection, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[c][id]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", c, id, store.ErrNotFound)
	}
	return append(json.RawMessage(nil), d.source...), nil
}

func (s *Store) GetFieldsByID(_ context.Context, c store.Collection, id string, fields ...string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[c][id]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", c, id, store.ErrNotFound)
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := store.FieldValue(id, d.decoded, f); ok {
			out[f] = v
		}
	}
	return out, nil
}

func (s *Store) Search(_ context.Context, c store.Collection, q store.Query, from, size int, sorts ...store.Sort) (store.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits := s.match(c, q, sorts)
	total := int64(len(hits))
	if from > len(hits) {
		from = len(hits)
	}
	end := len(hits)
	if size > 0 && from+size < end {
		end = from + size
	}
	return store.Page{Total: total, Hits: hits[from:end]}, nil
}

func (s *Store) ScrollOpen(_ context.Context, c store.Collection, q store.Query, size int, ttl time.Duration, sorts ...store.Sort) (store.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indices[c.Index]; !ok {
		return store.Page{}, fmt.Errorf("scroll %s: %w", c, store.ErrIndexNotFound)
	}
	hits := s.match(c, q, sorts)
	cur := &scrollCursor{hits: hits, size: size, total: int64(len(hits)), expires: s.now().Add(ttl)}
	id := uuid.NewString()
	s.scrolls[id] = cur
	return s.nextPage(id, cur), nil
}

func (s *Store) ScrollNext(_ context.Context, scrollID string, ttl time.Duration) (store.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.scrolls[scrollID]
	if !ok || s.now().After(cur.expires) {
		delete(s.scrolls, scrollID)
		return store.Page{}, fmt.Errorf("scroll %s: %w", scrollID, store.ErrScrollNotFound)
	}
	cur.expires = s.now().Add(ttl)
	return s.nextPage(scrollID, cur), nil
}

// ExpireScroll drops a cursor as if its time-to-live elapsed.
func (s *Store) ExpireScroll(scrollID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scrolls, scrollID)
}

// Count returns the number of documents in a collection.
func (s *Store) Count(c store.Collection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[c])
}

func (s *Store) nextPage(id string, cur *scrollCursor) store.Page {
	end := cur.offset + cur.size
	if cur.size <= 0 || end > len(cur.hits) {
		end = len(cur.hits)
	}
	page := store.Page{ScrollID: id, Total: cur.total, Hits: cur.hits[cur.offset:end]}
	cur.offset = end
	return page
}

func (s *Store) match(c store.Collection, q store.Query, sorts []store.Sort) []store.Hit {
	coll := s.docs[c]
	hits := make([]store.Hit, 0, len(coll))
	decoded := make(map[string]map[string]any, len(coll))
	for id, d := range coll {
		if !q.Matches(id, d.decoded) {
			continue
		}
		hits = append(hits, store.Hit{Collection: c, ID: id, Source: append(json.RawMessage(nil), d.source...)})
		decoded[id] = d.decoded
	}
	store.SortHits(hits, decoded, sorts)
	return hits
}

func (s *Store) put(c store.Collection, id string, doc json.RawMessage) error {
	decoded, err := store.Decode(doc)
	if err != nil {
		return err
	}
	if s.docs[c] == nil {
		s.docs[c] = make(map[string]document)
	}
	s.indices[c.Index] = struct{}{}
	s.docs[c][id] = document{source: append(json.RawMessage(nil), doc...), decoded: decoded}
	return nil
}
