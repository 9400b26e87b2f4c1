package clickhouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

const insertDocumentsQuery = `
INSERT INTO documents (
	idx,
	doc_type,
	id,
	source,
	deleted,
	updated_at
) VALUES`

const documentExistsQuery = `SELECT count() FROM documents FINAL WHERE idx = ? AND doc_type = ? AND id = ? AND deleted = 0`

const documentSourceQuery = `SELECT source FROM documents FINAL WHERE idx = ? AND doc_type = ? AND id = ? AND deleted = 0 LIMIT 1`

// Exists reports whether a live document is stored under id.
func (r *Repository) Exists(ctx context.Context, c store.Collection, id string) (exists bool, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("exists", c.Index, err, start)
	}()

	count, err := r.countQuery(ctx, documentExistsQuery, c.Index, c.Type, id)
	if err != nil {
		return false, fmt.Errorf("exists %s/%s: %w", c, id, err)
	}
	return count > 0, nil
}

// Create inserts a document, failing when the id is already live.
func (r *Repository) Create(ctx context.Context, c store.Collection, id string, doc json.RawMessage, wait bool) error {
	exists, err := r.Exists(ctx, c, id)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("create %s/%s: %w", c, id, store.ErrAlreadyExists)
	}
	return r.write(ctx, "create", c, id, doc, false)
}

// Update replaces a document. ReplacingMergeTree keeps the row with the newest updated_at.
func (r *Repository) Update(ctx context.Context, c store.Collection, id string, doc json.RawMessage, _ bool) error {
	return r.write(ctx, "update", c, id, doc, false)
}

// Delete writes a tombstone for id.
func (r *Repository) Delete(ctx context.Context, c store.Collection, id string, _ bool) error {
	exists, err := r.Exists(ctx, c, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("delete %s/%s: %w", c, id, store.ErrNotFound)
	}
	return r.write(ctx, "delete", c, id, nil, true)
}

// GetByID returns the raw source of a live document.
func (r *Repository) GetByID(ctx context.Context, c store.Collection, id string) (source json.RawMessage, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, store.ErrNotFound) {
			r.metrics.Observe("get_by_id", c.Index, nil, start)
			return
		}
		r.metrics.Observe("get_by_id", c.Index, err, start)
	}()

	rows, err := r.conn.Query(ctx, documentSourceQuery, c.Index, c.Type, id)
	if err != nil {
		return nil, fmt.Errorf("query document %s/%s: %w", c, id, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	if !rows.Next() {
		return nil, fmt.Errorf("get %s/%s: %w", c, id, store.ErrNotFound)
	}
	var raw string
	if err = rows.Scan(&raw); err != nil {
		return nil, fmt.Errorf("scan document %s/%s: %w", c, id, err)
	}
	return json.RawMessage(raw), nil
}

// GetFieldsByID projects the requested fields of a live document.
func (r *Repository) GetFieldsByID(ctx context.Context, c store.Collection, id string, fields ...string) (map[string]any, error) {
	raw, err := r.GetByID(ctx, c, id)
	if err != nil {
		return nil, err
	}
	doc, err := store.Decode(raw)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := store.FieldValue(id, doc, f); ok {
			out[f] = v
		}
	}
	return out, nil
}

func (r *Repository) write(ctx context.Context, operation string, c store.Collection, id string, doc json.RawMessage, deleted bool) (err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe(operation, c.Index, err, start)
	}()

	batch, err := r.conn.PrepareBatch(ctx, insertDocumentsQuery)
	if err != nil {
		return fmt.Errorf("prepare documents batch: %w", err)
	}
	if err = batch.Append(c.Index, c.Type, id, string(doc), deletedFlag(deleted), r.now()); err != nil {
		return fmt.Errorf("append document %s/%s: %w", c, id, err)
	}
	if err = batch.Send(); err != nil {
		return fmt.Errorf("%s document %s/%s: %w", operation, c, id, err)
	}
	return nil
}

func deletedFlag(deleted bool) uint8 {
	if deleted {
		return 1
	}
	return 0
}
