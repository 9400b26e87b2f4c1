package blockchain

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

// Resolution is the outcome of a fork check.
type Resolution struct {
	// Resolved is false when not even block 0 matches the peer.
	Resolved bool
	// Ancestor is the highest number probed where local and remote hashes agree.
	Ancestor uint64
	// Probes counts hash comparisons.
	Probes int
	// Rewound is true when local blocks above the ancestor were deleted.
	Rewound bool
}

// ForkResolver finds the common ancestor of the local chain and a peer's chain.
type ForkResolver struct {
	client  PeerClient
	blocks  *Blocks
	window  uint64
	metrics Metrics
	logger  *zap.Logger
}

func NewForkResolver(client PeerClient, blocks *Blocks, window uint64, metrics Metrics, logger *zap.Logger) *ForkResolver {
	if window == 0 {
		window = defaultForkResyncWindow
	}
	return &ForkResolver{
		client:  client,
		blocks:  blocks,
		window:  window,
		metrics: metrics,
		logger:  logger.Named("fork_resolver"),
	}
}

// Resolve compares the local block at referenceNumber with referenceHash, the peer's view, and
// walks back one window at a time until both chains agree. When the ancestor is below
// referenceNumber, local blocks in [ancestor, referenceNumber+window] are deleted and "current"
// is rewound to ancestor-1, so the caller resumes fetching at the ancestor.
func (r *ForkResolver) Resolve(ctx context.Context, p model.Peer, currency, referenceHash string, referenceNumber uint64) (res Resolution, err error) {
	defer func() {
		if err == nil {
			r.metrics.ObserveFork(currency, res.Probes, res.Resolved)
		}
	}()
	logger := r.logger.With(zap.String("currency", currency), zap.String("peer", p.String()))

	number, hash := referenceNumber, referenceHash
	for {
		res.Probes++
		local, err := r.blocks.Get(ctx, currency, number)
		switch {
		case err == nil && local.Hash == hash:
			res.Resolved, res.Ancestor = true, number
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return res, fmt.Errorf("read local block %d: %w", number, err)
		}
		if res.Resolved {
			break
		}
		if number == 0 {
			logger.Warn("no common ancestor with peer", zap.Uint64("reference", referenceNumber), zap.Int("probes", res.Probes))
			return res, nil
		}

		if number > r.window {
			number -= r.window
		} else {
			number = 0
		}
		remote, err := r.client.Block(ctx, p, number)
		if err != nil {
			return res, fmt.Errorf("fetch peer block %d: %w", number, err)
		}
		hash = remote.Hash
	}

	if res.Ancestor == referenceNumber {
		return res, nil
	}

	logger.Info("fork detected, rewinding",
		zap.Uint64("ancestor", res.Ancestor),
		zap.Uint64("reference", referenceNumber),
		zap.Int("probes", res.Probes))
	if err := r.rewind(ctx, currency, res.Ancestor, referenceNumber+r.window); err != nil {
		return res, err
	}
	res.Rewound = true
	return res, nil
}

func (r *ForkResolver) rewind(ctx context.Context, currency string, ancestor, upTo uint64) error {
	deleted, err := r.blocks.DeleteRange(ctx, currency, ancestor, upTo)
	if err != nil {
		return fmt.Errorf("rewind to %d: %w", ancestor, err)
	}
	r.logger.Debug("blocks deleted", zap.String("currency", currency), zap.Uint64("from", ancestor), zap.Uint64("to", upTo), zap.Int("deleted", deleted))

	if ancestor == 0 {
		return r.blocks.DropCurrent(ctx, currency)
	}
	prev, err := r.blocks.Get(ctx, currency, ancestor-1)
	if errors.Is(err, store.ErrNotFound) {
		return r.blocks.DropCurrent(ctx, currency)
	}
	if err != nil {
		return fmt.Errorf("read block %d: %w", ancestor-1, err)
	}
	return r.blocks.SetCurrent(ctx, prev)
}
