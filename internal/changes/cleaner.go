package changes

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

const (
	referenceIndexField = "reference.index"
	referenceTypeField  = "reference.type"
	referenceIDField    = "reference.id"

	cleanPageSize = 500
)

// ReferenceCleaner deletes derived documents whose reference points at a deleted document.
type ReferenceCleaner struct {
	store   store.DocumentStore
	targets []store.Collection
	logger  *zap.Logger
}

// NewReferenceCleaner cleans the given target collections, which hold documents with a
// "reference" field shaped like model.DocumentReference.
func NewReferenceCleaner(s store.DocumentStore, logger *zap.Logger, targets ...store.Collection) *ReferenceCleaner {
	return &ReferenceCleaner{store: s, targets: targets, logger: logger.Named("reference_cleaner")}
}

// Register hooks the cleaner on the bus for deletes of the given sources.
func (c *ReferenceCleaner) Register(bus *Bus, sources ...string) func() {
	return bus.Register(c.OnChange, sources...)
}

// OnChange is the bus listener.
func (c *ReferenceCleaner) OnChange(ctx context.Context, e model.ChangeEvent) {
	if e.Operation != model.ChangeDelete {
		return
	}
	ref := model.DocumentReference{Index: e.Index, Type: e.Type, ID: e.ID}
	n, err := c.Clean(ctx, ref)
	if err != nil {
		c.logger.Warn("clean references failed", zap.String("collection", e.Collection()), zap.String("id", e.ID), zap.Error(err))
		return
	}
	if n > 0 {
		c.logger.Debug("references cleaned", zap.String("collection", e.Collection()), zap.String("id", e.ID), zap.Int("deleted", n))
	}
}

// Clean deletes every derived document referencing ref and returns how many were deleted.
func (c *ReferenceCleaner) Clean(ctx context.Context, ref model.DocumentReference) (int, error) {
	q := store.MatchAll().
		Term(referenceIndexField, ref.Index).
		Term(referenceTypeField, ref.Type).
		Term(referenceIDField, ref.ID)

	deleted := 0
	for _, target := range c.targets {
		exists, err := c.store.IndexExists(ctx, target.Index)
		if err != nil {
			return deleted, fmt.Errorf("check index %s: %w", target.Index, err)
		}
		if !exists {
			continue
		}

		for {
			page, err := c.store.Search(ctx, target, q, 0, cleanPageSize)
			if err != nil {
				return deleted, fmt.Errorf("search references in %s: %w", target, err)
			}
			if len(page.Hits) == 0 {
				break
			}
			ops := make([]store.BulkOp, 0, len(page.Hits))
			for _, hit := range page.Hits {
				ops = append(ops, store.BulkOp{Action: store.BulkDelete, Collection: target, ID: hit.ID})
			}
			results, err := c.store.BulkWrite(ctx, ops)
			if err != nil {
				return deleted, fmt.Errorf("delete references in %s: %w", target, err)
			}
			failed := store.Failed(results)
			deleted += len(results) - len(failed)
			if len(failed) > 0 {
				return deleted, fmt.Errorf("delete references in %s: %d failed: %w", target, len(failed), failed[0].Err)
			}
			if len(page.Hits) < cleanPageSize {
				break
			}
		}
	}
	return deleted, nil
}
