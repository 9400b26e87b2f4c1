package clickhouse

import (
	"context"
	"fmt"
	"time"
)

const indexExistsQuery = `SELECT count() FROM doc_indices FINAL WHERE name = ?`

const createIndexQuery = `INSERT INTO doc_indices (name, created_at) VALUES (?, ?)`

// IndexExists reports whether an index was registered with CreateIndex.
func (r *Repository) IndexExists(ctx context.Context, index string) (exists bool, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("index_exists", index, err, start)
	}()

	count, err := r.countQuery(ctx, indexExistsQuery, index)
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", index, err)
	}
	return count > 0, nil
}

// CreateIndex registers an index so that replication targets it.
func (r *Repository) CreateIndex(ctx context.Context, index string) (err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("create_index", index, err, start)
	}()

	if err = r.conn.Exec(ctx, createIndexQuery, index, r.now()); err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	return nil
}
