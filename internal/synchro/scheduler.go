package synchro

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/clock"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/peer"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/synchro/blockchain"
	"github.com/goodnatureofminers/ledgerpod-backend/pkg/batcher"
	"github.com/goodnatureofminers/ledgerpod-backend/pkg/workerpool"
)

var (
	// ErrIncompatiblePeer is returned when a peer serves another genesis block.
	ErrIncompatiblePeer = errors.New("peer serves another chain")
	// ErrBlocksDisabled is returned by block entry points when no block syncer is wired.
	ErrBlocksDisabled = errors.New("block synchronization disabled")
)

// Scheduler runs periodic replication of every registered collection for every currency.
type Scheduler struct {
	cfg        Config
	registry   *Registry
	peers      PeerLister
	client     PeerClient
	blocks     BlockSyncer
	genesis    GenesisReader
	executions *Executions
	clock      clockwork.Clock
	metrics    Metrics
	logger     *zap.Logger

	mu       sync.Mutex
	synced   map[string]struct{}
	live     map[string]context.CancelFunc
	progress map[string]*blockchain.Progress
	wg       sync.WaitGroup
}

// NewScheduler builds a scheduler. blocks may be nil to replicate documents only.
func NewScheduler(
	cfg Config,
	registry *Registry,
	peers PeerLister,
	client PeerClient,
	blocks BlockSyncer,
	genesis GenesisReader,
	executions *Executions,
	clk clockwork.Clock,
	metrics Metrics,
	logger *zap.Logger,
) *Scheduler {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Scheduler{
		cfg:        cfg.withDefaults(),
		registry:   registry,
		peers:      peers,
		client:     client,
		blocks:     blocks,
		genesis:    genesis,
		executions: executions,
		clock:      clk,
		metrics:    metrics,
		logger:     logger.Named("synchro_scheduler"),
		synced:     make(map[string]struct{}),
		live:       make(map[string]context.CancelFunc),
		progress:   make(map[string]*blockchain.Progress),
	}
}

// Run ticks once after the startup delay, then every interval, until ctx is done.
// Live subscriptions are closed on return.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.StopLive()

	timer := s.clock.NewTimer(clock.Jitter(s.cfg.StartupDelay, s.cfg.MaxJitter))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.Chan():
			started := s.clock.Now()
			if err := s.SynchronizeAll(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("synchronization tick finished with errors", zap.Error(err))
			}
			s.logger.Info("synchronization tick done", zap.Duration("took", s.clock.Since(started)))
			timer.Reset(clock.Jitter(s.cfg.Interval, s.cfg.MaxJitter))
		}
	}
}

// SynchronizeAll replicates every currency concurrently. A failing currency does not stop the others.
func (s *Scheduler) SynchronizeAll(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, currency := range s.cfg.Currencies {
		g.Go(func() error {
			if err := s.synchronizeCurrency(ctx, currency); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("currency %s: %w", currency, err))
				mu.Unlock()
			}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (s *Scheduler) synchronizeCurrency(ctx context.Context, currency string) error {
	logger := s.logger.With(zap.String("currency", currency))
	var errs []error

	if s.blocks != nil {
		if err := s.syncMainPeer(ctx, currency); err != nil {
			logger.Warn("block synchronization failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	for _, api := range s.registry.APIs() {
		peers, err := s.peers.UpPeers(ctx, currency, api)
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s peers: %w", api, err))
			continue
		}
		if len(peers) == 0 {
			logger.Debug("no peer to synchronize", zap.String("api", api))
			continue
		}
		err = workerpool.ProcessAll(ctx, s.cfg.PeerWorkers, peers, func(ctx context.Context, p model.Peer) error {
			_, err := s.SynchronizePeer(ctx, p)
			return err
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// syncMainPeer feeds the block coordinator from the peer with the highest head.
func (s *Scheduler) syncMainPeer(ctx context.Context, currency string) error {
	peers, err := s.peers.UpPeers(ctx, currency, model.BasicMerkledAPI)
	if err != nil {
		return fmt.Errorf("list block peers: %w", err)
	}
	if len(peers) == 0 {
		s.logger.Debug("no block peer", zap.String("currency", currency))
		return nil
	}
	_, err = s.SyncBlocks(ctx, peers[0])
	return err
}

// SyncBlocks brings the local chain of p's currency up to p's head.
func (s *Scheduler) SyncBlocks(ctx context.Context, p model.Peer) (blockchain.Report, error) {
	if s.blocks == nil {
		return blockchain.Report{}, ErrBlocksDisabled
	}
	return s.blocks.IndexLastBlocks(ctx, p, s.progressOf(p.Currency))
}

// SyncBlockRange copies blocks from..to of p's currency.
func (s *Scheduler) SyncBlockRange(ctx context.Context, p model.Peer, from, to uint64) (blockchain.Report, error) {
	if s.blocks == nil {
		return blockchain.Report{}, ErrBlocksDisabled
	}
	return s.blocks.IndexBlocksRange(ctx, p, from, to, s.progressOf(p.Currency))
}

// Progress returns the state of the last block synchronization of currency.
func (s *Scheduler) Progress(currency string) blockchain.ProgressSnapshot {
	return s.progressOf(currency).Snapshot()
}

func (s *Scheduler) progressOf(currency string) *blockchain.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[currency]
	if !ok {
		p = blockchain.NewProgress(currency)
		s.progress[currency] = p
	}
	return p
}

// SynchronizePeer runs every action of p's API against p and records the bookmark.
// The bookmark is only advanced when every action succeeded.
func (s *Scheduler) SynchronizePeer(ctx context.Context, p model.Peer) (result *model.SynchroResult, err error) {
	p = p.WithID()
	actions := s.registry.ForAPI(p.API)
	if len(actions) == 0 {
		return model.NewSynchroResult(), nil
	}
	defer func() {
		s.metrics.ObservePeer(p.Currency, p.API, err)
	}()
	logger := s.logger.With(zap.String("currency", p.Currency), zap.String("peer", p.String()))

	if err := s.checkCompatible(ctx, p); err != nil {
		logger.Warn("peer skipped", zap.Error(err))
		return nil, err
	}
	fromTime, err := s.fromTime(ctx, p)
	if err != nil {
		return nil, err
	}

	started := s.clock.Now()
	result = model.NewSynchroResult()
	var errs []error
	for _, a := range actions {
		if err := a.HandleSynchronize(ctx, p, fromTime, result); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			logger.Warn("collection not synchronized", zap.String("collection", a.Key()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return result, errors.Join(errs...)
	}

	if _, err := s.executions.Save(ctx, model.SynchroExecution{
		Peer:                p.ID,
		Currency:            p.Currency,
		API:                 p.API,
		Time:                started.Unix(),
		ExecutionDurationMs: s.clock.Since(started).Milliseconds(),
		Result:              result.Totals(),
	}); err != nil {
		return result, err
	}
	s.markSynced(p.ID)

	logger.Info("peer synchronized",
		zap.Int64("from_time", fromTime),
		zap.Stringer("result", result),
		zap.Duration("took", s.clock.Since(started)))

	if s.cfg.LiveSync {
		s.startLive(ctx, p)
	}
	return result, nil
}

func (s *Scheduler) checkCompatible(ctx context.Context, p model.Peer) error {
	if s.genesis == nil {
		return nil
	}
	local, err := s.genesis.GenesisSignature(ctx, p.Currency)
	if err != nil {
		return fmt.Errorf("read local genesis: %w", err)
	}
	if local == "" {
		return nil
	}
	remote, err := s.client.Block(ctx, p, 0)
	if err != nil {
		return fmt.Errorf("read genesis of %s: %w", p, err)
	}
	if remote.Signature != local {
		return fmt.Errorf("%w: %s", ErrIncompatiblePeer, p)
	}
	return nil
}

// fromTime is the lower version bound of the next run against p.
func (s *Scheduler) fromTime(ctx context.Context, p model.Peer) (int64, error) {
	if s.cfg.FullResyncAtStartup && !s.wasSynced(p.ID) {
		return 0, nil
	}
	last, ok, err := s.executions.Last(ctx, p.Currency, p.ID, p.API)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return max(0, last.Time-int64(s.cfg.TimeOffset/time.Second)), nil
}

func (s *Scheduler) wasSynced(peerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.synced[peerID]
	return ok
}

func (s *Scheduler) markSynced(peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced[peerID] = struct{}{}
}

// startLive follows the change feed of p until StopLive or the connection drops.
// It outlives the caller's context.
func (s *Scheduler) startLive(ctx context.Context, p model.Peer) {
	s.mu.Lock()
	if _, ok := s.live[p.ID]; ok {
		s.mu.Unlock()
		return
	}
	liveCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.live[p.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.live, p.ID)
			s.mu.Unlock()
			cancel()
		}()

		logger := s.logger.With(zap.String("currency", p.Currency), zap.String("peer", p.String()))
		logger.Info("following change feed")
		err := s.follow(liveCtx, p)
		if peer.IsClosed(err) {
			logger.Info("change feed closed")
			return
		}
		logger.Warn("change feed lost", zap.Error(err))
	}()
}

func (s *Scheduler) follow(ctx context.Context, p model.Peer) error {
	b := batcher.New(s.logger, func(ctx context.Context, events []model.ChangeEvent) error {
		return s.applyChanges(ctx, p, events)
	}, s.cfg.LiveFlushSize, s.cfg.LiveFlushInterval, s.cfg.LiveRPS)
	b.Start(ctx)
	defer b.Stop()

	return s.client.SubscribeChanges(ctx, p, s.registry.SourceFilter(p.API), func(e model.ChangeEvent) {
		if err := b.Add(ctx, e); err != nil {
			s.logger.Debug("change event dropped", zap.String("id", e.ID), zap.Error(err))
		}
	})
}

// applyChanges routes a batch of feed events to their actions and advances the bookmark.
func (s *Scheduler) applyChanges(ctx context.Context, p model.Peer, events []model.ChangeEvent) error {
	started := s.clock.Now()
	result := model.NewSynchroResult()
	for _, e := range events {
		a, ok := s.registry.Get(e.Collection())
		if !ok || a.API() != p.API {
			continue
		}
		s.metrics.ObserveLiveEvent(e.Collection())
		if err := a.HandleChange(ctx, p, e, result); err != nil {
			return err
		}
	}
	_, err := s.executions.Save(ctx, model.SynchroExecution{
		Peer:                p.ID,
		Currency:            p.Currency,
		API:                 p.API,
		Time:                started.Unix(),
		ExecutionDurationMs: s.clock.Since(started).Milliseconds(),
		Result:              result.Totals(),
	})
	return err
}

// LivePeers returns the sorted ids of peers whose change feed is followed.
func (s *Scheduler) LivePeers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StopLive closes every change feed subscription and waits for pending batches.
func (s *Scheduler) StopLive() {
	s.mu.Lock()
	for _, cancel := range s.live {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
