package blockchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
	"github.com/goodnatureofminers/ledgerpod-backend/pkg/safe"
)

const (
	// BlockType is the document type blocks are stored under, inside the currency index.
	BlockType = "block"

	numberField     = "number"
	deletePageSize  = 1000
	maxNumberWindow = 2
)

// BlockCollection returns the collection holding the blocks of currency.
func BlockCollection(currency string) store.Collection {
	return store.Collection{Index: currency, Type: BlockType}
}

// Blocks stores the chain of every currency, one document per block number plus "current".
type Blocks struct {
	store store.DocumentStore
}

func NewBlocks(s store.DocumentStore) *Blocks {
	return &Blocks{store: s}
}

func (b *Blocks) get(ctx context.Context, currency, id string) (model.Block, error) {
	raw, err := b.store.GetByID(ctx, BlockCollection(currency), id)
	if err != nil {
		return model.Block{}, err
	}
	var block model.Block
	if err := json.Unmarshal(raw, &block); err != nil {
		return model.Block{}, fmt.Errorf("decode block %s/%s: %w", currency, id, err)
	}
	return block, nil
}

// Current returns the block mirrored by "current". store.ErrNotFound when unset.
func (b *Blocks) Current(ctx context.Context, currency string) (model.Block, error) {
	return b.get(ctx, currency, model.CurrentBlockID)
}

// Get returns the block at number. store.ErrNotFound when absent.
func (b *Blocks) Get(ctx context.Context, currency string, number uint64) (model.Block, error) {
	return b.get(ctx, currency, model.Block{Number: number}.ID())
}

// MaxNumber returns the highest stored block number, ignoring "current".
func (b *Blocks) MaxNumber(ctx context.Context, currency string) (uint64, bool, error) {
	page, err := b.store.Search(ctx, BlockCollection(currency), store.MatchAll(), 0, maxNumberWindow, store.Desc(numberField))
	if err != nil {
		if errors.Is(err, store.ErrIndexNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("max block number of %s: %w", currency, err)
	}
	for _, hit := range page.Hits {
		if hit.ID == model.CurrentBlockID {
			continue
		}
		var block model.Block
		if err := json.Unmarshal(hit.Source, &block); err != nil {
			return 0, false, fmt.Errorf("decode block %s/%s: %w", currency, hit.ID, err)
		}
		return block.Number, true, nil
	}
	return 0, false, nil
}

// GenesisSignature returns the signature of block 0, empty when it is not stored.
func (b *Blocks) GenesisSignature(ctx context.Context, currency string) (string, error) {
	genesis, err := b.Get(ctx, currency, 0)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return genesis.Signature, nil
}

// Save writes one block.
func (b *Blocks) Save(ctx context.Context, block model.Block) error {
	raw, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", block.Number, err)
	}
	if err := b.store.Update(ctx, BlockCollection(block.Currency), block.ID(), raw, false); err != nil {
		return fmt.Errorf("save block %s/%d: %w", block.Currency, block.Number, err)
	}
	return nil
}

// SetCurrent points "current" at block.
func (b *Blocks) SetCurrent(ctx context.Context, block model.Block) error {
	raw, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("encode current block: %w", err)
	}
	if err := b.store.Update(ctx, BlockCollection(block.Currency), model.CurrentBlockID, raw, true); err != nil {
		return fmt.Errorf("set current block of %s: %w", block.Currency, err)
	}
	return nil
}

// DropCurrent removes "current". Missing is not an error.
func (b *Blocks) DropCurrent(ctx context.Context, currency string) error {
	err := b.store.Delete(ctx, BlockCollection(currency), model.CurrentBlockID, true)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("drop current block of %s: %w", currency, err)
	}
	return nil
}

// BulkSave writes blocks of one currency in a single request and reports per-block outcomes.
func (b *Blocks) BulkSave(ctx context.Context, currency string, blocks []model.Block) ([]store.BulkItemResult, error) {
	ops := make([]store.BulkOp, 0, len(blocks))
	for _, block := range blocks {
		raw, err := json.Marshal(block)
		if err != nil {
			return nil, fmt.Errorf("encode block %d: %w", block.Number, err)
		}
		ops = append(ops, store.BulkOp{
			Action:     store.BulkIndex,
			Collection: BlockCollection(currency),
			ID:         block.ID(),
			Source:     raw,
		})
	}
	results, err := b.store.BulkWrite(ctx, ops)
	if err != nil {
		return nil, fmt.Errorf("bulk save %d blocks of %s: %w", len(blocks), currency, err)
	}
	return results, nil
}

// DeleteRange deletes stored blocks numbered from..to inclusive and returns how many were removed.
func (b *Blocks) DeleteRange(ctx context.Context, currency string, from, to uint64) (int, error) {
	lo, hi, err := int64Bounds(from, to)
	if err != nil {
		return 0, err
	}
	q := store.MatchAll().Between(numberField, lo, hi)
	coll := BlockCollection(currency)

	deleted := 0
	for {
		page, err := b.store.Search(ctx, coll, q, 0, deletePageSize, store.Asc(numberField))
		if err != nil {
			return deleted, fmt.Errorf("search blocks %d-%d of %s: %w", from, to, currency, err)
		}
		ops := make([]store.BulkOp, 0, len(page.Hits))
		for _, hit := range page.Hits {
			if hit.ID == model.CurrentBlockID {
				continue
			}
			ops = append(ops, store.BulkOp{Action: store.BulkDelete, Collection: coll, ID: hit.ID})
		}
		if len(ops) == 0 {
			return deleted, nil
		}
		results, err := b.store.BulkWrite(ctx, ops)
		if err != nil {
			return deleted, fmt.Errorf("delete blocks %d-%d of %s: %w", from, to, currency, err)
		}
		failed := store.Failed(results)
		deleted += len(results) - len(failed)
		if len(failed) > 0 {
			return deleted, fmt.Errorf("delete block %s of %s: %w", failed[0].ID, currency, failed[0].Err)
		}
	}
}

func int64Bounds(from, to uint64) (int64, int64, error) {
	lo, err := safe.Int64(from)
	if err != nil {
		return 0, 0, err
	}
	hi, err := safe.Int64(to)
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}
