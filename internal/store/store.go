// Package store defines the document store contract shared by every replication component.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrIndexNotFound is returned when the targeted index was never created locally.
	ErrIndexNotFound = errors.New("index not found")
	// ErrScrollNotFound is returned when a scroll cursor expired or is unknown.
	ErrScrollNotFound = errors.New("scroll not found")
	// ErrAlreadyExists is returned by Create when the id is taken.
	ErrAlreadyExists = errors.New("document already exists")
)

// Collection names an "index/type" pair.
type Collection struct {
	Index string
	Type  string
}

func (c Collection) String() string {
	return c.Index + "/" + c.Type
}

// BulkAction is the kind of write inside a bulk request.
type BulkAction string

const (
	BulkIndex  BulkAction = "index"
	BulkCreate BulkAction = "create"
	BulkDelete BulkAction = "delete"
)

// BulkOp is one write of a bulk request.
type BulkOp struct {
	Action     BulkAction
	Collection Collection
	ID         string
	Source     json.RawMessage
}

// BulkItemResult reports the outcome of one BulkOp, in request order.
type BulkItemResult struct {
	ID  string
	Err error
}

// Failed returns the results that carry an error.
func Failed(results []BulkItemResult) []BulkItemResult {
	var out []BulkItemResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Hit is one document returned by a search.
type Hit struct {
	Collection Collection
	ID         string
	Source     json.RawMessage
}

// Page is one page of search or scroll results.
type Page struct {
	ScrollID string
	Total    int64
	Hits     []Hit
}

// DocumentStore is the persistence contract consumed by synchronization.
type DocumentStore interface {
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string) error
	Exists(ctx context.Context, c Collection, id string) (bool, error)
	Create(ctx context.Context, c Collection, id string, doc json.RawMessage, wait bool) error
	Update(ctx context.Context, c Collection, id string, doc json.RawMessage, wait bool) error
	Delete(ctx context.Context, c Collection, id string, wait bool) error
	BulkWrite(ctx context.Context, ops []BulkOp) ([]BulkItemResult, error)
	GetByID(ctx context.Context, c Collection, id string) (json.RawMessage, error)
	GetFieldsByID(ctx context.Context, c Collection, id string, fields ...string) (map[string]any, error)
	Search(ctx context.Context, c Collection, q Query, from, size int, sort ...Sort) (Page, error)
	ScrollOpen(ctx context.Context, c Collection, q Query, size int, ttl time.Duration, sort ...Sort) (Page, error)
	ScrollNext(ctx context.Context, scrollID string, ttl time.Duration) (Page, error)
}
