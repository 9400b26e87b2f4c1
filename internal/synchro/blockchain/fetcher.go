package blockchain

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/pkg/batcher"
)

// BlockFetcher copies blocks from a peer into the store and reports what it could not copy.
type BlockFetcher struct {
	client   PeerClient
	blocks   *Blocks
	settings Settings
	metrics  Metrics
	logger   *zap.Logger
}

func NewBlockFetcher(client PeerClient, blocks *Blocks, settings Settings, metrics Metrics, logger *zap.Logger) *BlockFetcher {
	return &BlockFetcher{
		client:   client,
		blocks:   blocks,
		settings: settings.withDefaults(),
		metrics:  metrics,
		logger:   logger.Named("block_fetcher"),
	}
}

// Fetch uses bulk or single mode depending on settings.
func (f *BlockFetcher) Fetch(ctx context.Context, p model.Peer, currency string, from, to uint64, progress *Progress) (*model.MissingSet, error) {
	if f.settings.BulkEnable {
		return f.FetchBulk(ctx, p, currency, from, to, progress)
	}
	return f.FetchSingle(ctx, p, currency, from, to, progress)
}

// FetchSingle copies blocks one by one. Every ProgressEvery blocks it reports progress and
// stops when ctx is done. "current" follows the last block while nothing is missing.
func (f *BlockFetcher) FetchSingle(ctx context.Context, p model.Peer, currency string, from, to uint64, progress *Progress) (*model.MissingSet, error) {
	return f.fetchSingle(ctx, p, currency, from, to, progress, true)
}

// FetchBulk copies blocks page by page. An unreachable peer or an empty page marks the whole
// page range missing; otherwise only blocks absent from the page or rejected by the store are.
func (f *BlockFetcher) FetchBulk(ctx context.Context, p model.Peer, currency string, from, to uint64, progress *Progress) (*model.MissingSet, error) {
	return f.fetchBulk(ctx, p, currency, from, to, progress, true)
}

func (f *BlockFetcher) fetchSingle(ctx context.Context, p model.Peer, currency string, from, to uint64, progress *Progress, updateCurrent bool) (*model.MissingSet, error) {
	logger := f.logger.With(zap.String("currency", currency), zap.String("peer", p.String()))
	missing := model.NewMissingSet()
	every := uint64(f.settings.ProgressEvery)
	indexed := 0
	defer func() {
		f.metrics.ObserveIndexed(currency, modeSingle, indexed)
		f.metrics.ObserveMissing(currency, modeSingle, missing.Len())
	}()

	for n := from; n <= to; n++ {
		if (n-from)%every == 0 {
			progress.advance(n)
			if err := ctx.Err(); err != nil {
				return missing, err
			}
		}

		block, err := f.client.Block(ctx, p, n)
		if err == nil && block.Number != n {
			err = errors.New("peer returned block " + strconv.FormatUint(block.Number, 10))
		}
		if err == nil {
			block.Currency = currency
			err = f.blocks.Save(ctx, block)
		}
		if err != nil {
			if ctx.Err() != nil {
				return missing, ctx.Err()
			}
			logger.Debug("block missing", zap.Uint64("number", n), zap.Error(err))
			missing.Add(model.Single(n))
		} else {
			indexed++
			if updateCurrent && missing.IsEmpty() {
				if err := f.blocks.SetCurrent(ctx, block); err != nil {
					logger.Warn("update current failed", zap.Uint64("number", n), zap.Error(err))
				}
			}
		}

		if n == to {
			break
		}
	}
	progress.advance(to)
	return missing, nil
}

func (f *BlockFetcher) fetchBulk(ctx context.Context, p model.Peer, currency string, from, to uint64, progress *Progress, updateCurrent bool) (*model.MissingSet, error) {
	logger := f.logger.With(zap.String("currency", currency), zap.String("peer", p.String()))
	missing := model.NewMissingSet()
	batchSize := uint64(f.settings.BulkBatchSize)
	indexed, missed := 0, 0
	currentUpdated := false
	defer func() {
		f.metrics.ObserveIndexed(currency, modeBulk, indexed)
		f.metrics.ObserveMissing(currency, modeBulk, missed)
	}()

	for pageFrom := from; pageFrom <= to; {
		pageTo := to
		if to-pageFrom >= batchSize {
			pageTo = pageFrom + batchSize - 1
		}
		progress.advance(pageFrom)
		if err := ctx.Err(); err != nil {
			return missing, err
		}

		written, err := f.writePage(ctx, p, currency, pageFrom, pageTo, missing)
		if err != nil {
			return missing, err
		}
		indexed += len(written)
		missed += int(pageTo-pageFrom+1) - len(written)

		if updateCurrent && len(written) > 0 {
			last := written[len(written)-1]
			if last.Number == to || f.settings.UpdateCurrentEveryPage {
				if err := f.blocks.SetCurrent(ctx, last); err != nil {
					logger.Warn("update current failed", zap.Uint64("number", last.Number), zap.Error(err))
				} else {
					currentUpdated = true
				}
			}
		}

		if pageTo == to {
			break
		}
		pageFrom = pageTo + 1
	}
	progress.advance(to)

	if updateCurrent && !currentUpdated {
		logger.Warn("current block not updated by bulk run", zap.Uint64("from", from), zap.Uint64("to", to))
		f.metrics.ObserveStaleCurrent(currency)
	}
	return missing, nil
}

// writePage fetches one page and writes it through the accumulator. It returns the written
// blocks in ascending order and records everything else of [pageFrom, pageTo] in missing.
func (f *BlockFetcher) writePage(ctx context.Context, p model.Peer, currency string, pageFrom, pageTo uint64, missing *model.MissingSet) ([]model.Block, error) {
	logger := f.logger.With(zap.String("currency", currency), zap.Uint64("from", pageFrom), zap.Uint64("to", pageTo))

	page, err := f.client.Blocks(ctx, p, int(pageTo-pageFrom+1), pageFrom)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Debug("page missing", zap.Error(err))
		missing.Add(model.Range(pageFrom, pageTo))
		return nil, nil
	}
	if len(page) == 0 {
		logger.Debug("peer returned an empty page")
		missing.Add(model.Range(pageFrom, pageTo))
		return nil, nil
	}

	byNumber := make(map[uint64]model.Block, len(page))
	for _, b := range page {
		if b.Number < pageFrom || b.Number > pageTo {
			continue
		}
		b.Currency = currency
		byNumber[b.Number] = b
	}

	written := make([]model.Block, 0, len(byNumber))
	acc := batcher.NewAccumulator(f.settings.BulkIndexSize, func(ctx context.Context, group []model.Block) error {
		results, err := f.blocks.BulkSave(ctx, currency, group)
		if err != nil {
			for _, b := range group {
				missing.Add(model.Single(b.Number))
			}
			return err
		}
		failed := make(map[string]error)
		for _, r := range results {
			if r.Err != nil {
				failed[r.ID] = r.Err
			}
		}
		for _, b := range group {
			if err, ok := failed[b.ID()]; ok {
				logger.Debug("block write failed", zap.Uint64("number", b.Number), zap.Error(err))
				missing.Add(model.Single(b.Number))
				continue
			}
			written = append(written, b)
		}
		return nil
	})

	for n := pageFrom; ; n++ {
		if b, ok := byNumber[n]; ok {
			acc.Add(b)
			if err := acc.FlushIfFull(ctx); err != nil {
				logger.Warn("bulk write failed", zap.Error(err))
			}
		} else {
			missing.Add(model.Single(n))
		}
		if n == pageTo {
			break
		}
	}
	if err := acc.FlushRemaining(ctx); err != nil {
		logger.Warn("bulk write failed", zap.Error(err))
	}
	if ctx.Err() != nil {
		return written, ctx.Err()
	}
	return written, nil
}
