package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

// BulkWrite sends every op in one batch. Items rejected while appending fail individually;
// a failed send fails every remaining item.
func (r *Repository) BulkWrite(ctx context.Context, ops []store.BulkOp) (results []store.BulkItemResult, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("bulk_write", firstIndex(ops), err, start)
	}()

	results = make([]store.BulkItemResult, len(ops))
	if len(ops) == 0 {
		return results, nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertDocumentsQuery)
	if err != nil {
		return nil, fmt.Errorf("prepare bulk batch: %w", err)
	}

	now := r.now()
	appended := 0
	for i, op := range ops {
		results[i].ID = op.ID
		deleted := op.Action == store.BulkDelete
		source := string(op.Source)
		if !deleted {
			if _, decodeErr := store.Decode(op.Source); decodeErr != nil {
				results[i].Err = decodeErr
				continue
			}
		} else {
			source = ""
		}
		if appendErr := batch.Append(op.Collection.Index, op.Collection.Type, op.ID, source, deletedFlag(deleted), now); appendErr != nil {
			results[i].Err = fmt.Errorf("append %s/%s: %w", op.Collection, op.ID, appendErr)
			continue
		}
		appended++
	}

	if appended == 0 {
		return results, nil
	}
	if sendErr := batch.Send(); sendErr != nil {
		for i := range results {
			if results[i].Err == nil {
				results[i].Err = fmt.Errorf("send bulk: %w", sendErr)
			}
		}
	}
	return results, nil
}

func firstIndex(ops []store.BulkOp) string {
	if len(ops) == 0 {
		return ""
	}
	return ops[0].Collection.Index
}
