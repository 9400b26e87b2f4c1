// Package blockchain replicates the block chain of a currency from its peers.
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
	"github.com/goodnatureofminers/ledgerpod-backend/pkg/locker"
)

var (
	// ErrForkUnresolved is returned when the peer shares no history with the local chain.
	ErrForkUnresolved = errors.New("no common ancestor with peer")
	// ErrBlocksMissing is returned when blocks are still missing after recovery.
	ErrBlocksMissing = errors.New("blocks still missing")
)

// Report summarizes one coordinator run.
type Report struct {
	Currency string
	Peer     string
	Status   model.SyncStatus
	First    uint64
	Last     uint64
	Fork     Resolution
	Missing  *model.MissingSet
}

// Coordinator runs block synchronization, at most one run per currency at a time.
type Coordinator struct {
	client   PeerClient
	registry PeerRegistry
	blocks   *Blocks
	resolver *ForkResolver
	fetcher  *BlockFetcher
	recovery *RecoveryAgent
	members  MembersRefresher
	locks    *locker.Locker
	settings Settings
	metrics  Metrics
	logger   *zap.Logger
}

// NewCoordinator wires the fork resolver, fetcher and recovery agent. members may be nil.
func NewCoordinator(
	client PeerClient,
	registry PeerRegistry,
	blocks *Blocks,
	members MembersRefresher,
	locks *locker.Locker,
	settings Settings,
	metrics Metrics,
	logger *zap.Logger,
) *Coordinator {
	settings = settings.withDefaults()
	logger = logger.Named("block_sync")
	fetcher := NewBlockFetcher(client, blocks, settings, metrics, logger)
	return &Coordinator{
		client:   client,
		registry: registry,
		blocks:   blocks,
		resolver: NewForkResolver(client, blocks, settings.ForkResyncWindow, metrics, logger),
		fetcher:  fetcher,
		recovery: NewRecoveryAgent(client, registry, fetcher, settings, metrics, logger),
		members:  members,
		locks:    locks,
		settings: settings,
		metrics:  metrics,
		logger:   logger,
	}
}

// Blocks exposes the block repository the coordinator writes to.
func (c *Coordinator) Blocks() *Blocks {
	return c.blocks
}

// IndexLastBlocks brings the local chain up to the peer's head.
func (c *Coordinator) IndexLastBlocks(ctx context.Context, p model.Peer, progress *Progress) (Report, error) {
	return c.index(ctx, p, nil, progress)
}

// IndexBlocksRange copies blocks from..to, capped at the peer's head.
func (c *Coordinator) IndexBlocksRange(ctx context.Context, p model.Peer, from, to uint64, progress *Progress) (Report, error) {
	return c.index(ctx, p, &[2]uint64{from, to}, progress)
}

func lockName(currency string) string {
	return "blockchain/" + currency
}

func (c *Coordinator) index(ctx context.Context, p model.Peer, bounds *[2]uint64, progress *Progress) (report Report, err error) {
	currency := p.Currency
	report = Report{Currency: currency, Peer: p.String()}
	logger := c.logger.With(zap.String("currency", currency), zap.String("peer", p.String()))

	unlock, err := c.locks.Lock(ctx, lockName(currency))
	if err != nil {
		report.Status = model.SyncStopped
		return report, err
	}
	defer unlock()

	started := time.Now()
	defer func() {
		c.metrics.ObserveRun(currency, string(report.Status), started)
		progress.finish(report.Status, report.summary())
		switch report.Status {
		case model.SyncSuccess:
			logger.Info("block sync finished", zap.Uint64("first", report.First), zap.Uint64("last", report.Last), zap.Duration("took", time.Since(started)))
		case model.SyncStopped:
			logger.Info("block sync stopped", zap.Error(err))
		default:
			logger.Warn("block sync failed", zap.Stringer("missing", report.Missing), zap.Error(err))
		}
	}()

	head, err := c.client.CurrentBlock(ctx, p)
	c.reportStats(ctx, p, head, err)
	if err != nil {
		return report.end(ctx, fmt.Errorf("read peer head: %w", err))
	}

	start, err := c.startNumber(ctx, currency)
	if err != nil {
		return report.end(ctx, err)
	}
	last := head.Number
	if bounds != nil {
		start = bounds[0]
		if bounds[1] < last {
			last = bounds[1]
		}
	}
	report.First, report.Last = start, last

	// A peer on another branch may sit at or below our height.
	if start > 0 {
		if start, err = c.checkFork(ctx, p, currency, start, head.Number, bounds != nil, &report); err != nil {
			return report.end(ctx, err)
		}
		report.First = start
	}
	if start > last {
		report.Status = model.SyncSuccess
		return report, nil
	}

	progress.start(p.String(), start, last)
	missing, err := c.fetcher.Fetch(ctx, p, currency, start, last, progress)
	report.Missing = missing
	if err != nil {
		c.holdCurrentBelow(ctx, currency, missing)
		return report.end(ctx, err)
	}

	if !missing.IsEmpty() {
		progress.message("recovering " + missing.String())
		remaining, err := c.recovery.Recover(ctx, p, head, missing, 1)
		report.Missing = remaining
		if err != nil {
			c.holdCurrentBelow(ctx, currency, remaining)
			return report.end(ctx, err)
		}
		if !remaining.IsEmpty() {
			c.holdCurrentBelow(ctx, currency, remaining)
			return report.end(ctx, ErrBlocksMissing)
		}
		if err := c.advanceCurrent(ctx, currency, last); err != nil {
			return report.end(ctx, err)
		}
	}

	report.Status = model.SyncSuccess
	c.refreshMembers(ctx, currency)
	return report, nil
}

// startNumber is current+1 when "current" matches the block stored at its own number,
// else the highest stored number+1, else 0.
func (c *Coordinator) startNumber(ctx context.Context, currency string) (uint64, error) {
	current, err := c.blocks.Current(ctx, currency)
	switch {
	case err == nil:
		stored, err := c.blocks.Get(ctx, currency, current.Number)
		if err == nil && stored.Hash == current.Hash {
			return current.Number + 1, nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("read block %d: %w", current.Number, err)
		}
		c.logger.Warn("current block is dangling", zap.String("currency", currency), zap.Uint64("number", current.Number))
	case !errors.Is(err, store.ErrNotFound):
		return 0, fmt.Errorf("read current block: %w", err)
	}

	maxNumber, ok, err := c.blocks.MaxNumber(ctx, currency)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return maxNumber + 1, nil
}

// checkFork resolves a fork anchored at start-1, or at the peer head when the peer is
// behind, and returns where fetching must resume.
func (c *Coordinator) checkFork(ctx context.Context, p model.Peer, currency string, start, peerHead uint64, rangeMode bool, report *Report) (uint64, error) {
	anchor := min(start-1, peerHead)
	if rangeMode {
		if _, err := c.blocks.Get(ctx, currency, anchor); errors.Is(err, store.ErrNotFound) {
			return start, nil
		}
	}
	remote, err := c.client.Block(ctx, p, anchor)
	if err != nil {
		return start, fmt.Errorf("fetch peer block %d: %w", anchor, err)
	}
	res, err := c.resolver.Resolve(ctx, p, currency, remote.Hash, anchor)
	report.Fork = res
	if err != nil {
		return start, err
	}
	if !res.Resolved {
		return start, ErrForkUnresolved
	}
	if !res.Rewound {
		return start, nil
	}
	if anchor < start-1 {
		// the resolver only clears up to anchor+window
		if _, err := c.blocks.DeleteRange(ctx, currency, res.Ancestor, start-1); err != nil {
			return start, fmt.Errorf("delete abandoned blocks %d-%d: %w", res.Ancestor, start-1, err)
		}
	}
	return res.Ancestor, nil
}

// holdCurrentBelow moves "current" under the lowest missing block so the next run fetches
// the hole again. Without a stored predecessor "current" is dropped and the blocks above
// the hole are deleted, since the next start then falls back to the highest stored number.
func (c *Coordinator) holdCurrentBelow(ctx context.Context, currency string, missing *model.MissingSet) {
	lowest, ok := missing.Lowest()
	if !ok {
		return
	}
	ctx = context.WithoutCancel(ctx)
	logger := c.logger.With(zap.String("currency", currency), zap.Uint64("missing", lowest))

	current, err := c.blocks.Current(ctx, currency)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		logger.Warn("read current block failed", zap.Error(err))
		return
	}
	if current.Number < lowest {
		return
	}

	if lowest > 0 {
		block, err := c.blocks.Get(ctx, currency, lowest-1)
		if err == nil {
			if err := c.blocks.SetCurrent(ctx, block); err != nil {
				logger.Warn("rewind current block failed", zap.Error(err))
			}
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("read block below hole failed", zap.Error(err))
			return
		}
	}
	if err := c.blocks.DropCurrent(ctx, currency); err != nil {
		logger.Warn("drop current block failed", zap.Error(err))
		return
	}
	maxNumber, ok, err := c.blocks.MaxNumber(ctx, currency)
	if err != nil || !ok || maxNumber < lowest {
		return
	}
	if _, err := c.blocks.DeleteRange(ctx, currency, lowest, maxNumber); err != nil {
		logger.Warn("delete blocks above hole failed", zap.Error(err))
	}
}

// advanceCurrent moves "current" to last once recovery filled every gap below it.
func (c *Coordinator) advanceCurrent(ctx context.Context, currency string, last uint64) error {
	current, err := c.blocks.Current(ctx, currency)
	if err == nil && current.Number >= last {
		return nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("read current block: %w", err)
	}
	block, err := c.blocks.Get(ctx, currency, last)
	if err != nil {
		return fmt.Errorf("read block %d: %w", last, err)
	}
	return c.blocks.SetCurrent(ctx, block)
}

func (c *Coordinator) reportStats(ctx context.Context, p model.Peer, head model.Block, err error) {
	if c.registry == nil || ctx.Err() != nil {
		return
	}
	if _, reportErr := c.registry.ReportStats(ctx, p, head, err); reportErr != nil {
		c.logger.Debug("report peer stats failed", zap.String("peer", p.String()), zap.Error(reportErr))
	}
}

func (c *Coordinator) refreshMembers(ctx context.Context, currency string) {
	if c.members == nil {
		return
	}
	unlock, ok := c.locks.TryLock(ctx, "members/"+currency, c.settings.MembersLockTimeout)
	if !ok {
		c.logger.Debug("members refresh already running", zap.String("currency", currency))
		return
	}
	defer unlock()
	if err := c.members.RefreshMembers(ctx, currency); err != nil {
		c.logger.Warn("members refresh failed", zap.String("currency", currency), zap.Error(err))
	}
}

// end sets the final status from err: STOPPED when ctx is done, FAILED otherwise.
func (r *Report) end(ctx context.Context, err error) (Report, error) {
	if ctx.Err() != nil {
		r.Status = model.SyncStopped
		return *r, ctx.Err()
	}
	r.Status = model.SyncFailed
	return *r, err
}

func (r Report) summary() string {
	msg := fmt.Sprintf("%s blocks %d-%d from %s", r.Status, r.First, r.Last, r.Peer)
	if !r.Missing.IsEmpty() {
		msg += ", missing " + r.Missing.String()
	}
	return msg
}
