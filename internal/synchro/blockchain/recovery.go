package blockchain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/clock"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
)

// RecoveryAgent fills blocks missing after a run by asking other peers of the same currency.
type RecoveryAgent struct {
	client      PeerClient
	registry    PeerRegistry
	fetcher     *BlockFetcher
	backoff     time.Duration
	maxAttempts int
	sleep       func(context.Context, time.Duration) error
	metrics     Metrics
	logger      *zap.Logger
}

func NewRecoveryAgent(client PeerClient, registry PeerRegistry, fetcher *BlockFetcher, settings Settings, metrics Metrics, logger *zap.Logger) *RecoveryAgent {
	settings = settings.withDefaults()
	return &RecoveryAgent{
		client:      client,
		registry:    registry,
		fetcher:     fetcher,
		backoff:     settings.RecoveryBackoff,
		maxAttempts: settings.RecoveryMaxAttempts,
		sleep:       clock.SleepWithContext,
		metrics:     metrics,
		logger:      logger.Named("recovery"),
	}
}

// Recover retries the missing entries on every other reachable peer whose head covers them,
// starting at the given attempt. Between attempts it waits and re-reads the origin head.
// It returns what is still missing once the attempt budget is spent; an empty set means
// everything was recovered. Errors are only returned on cancellation.
func (a *RecoveryAgent) Recover(ctx context.Context, origin model.Peer, current model.Block, missing *model.MissingSet, attempt int) (*model.MissingSet, error) {
	remaining := model.NewMissingSet(missing.Entries()...)
	currency := origin.Currency
	logger := a.logger.With(zap.String("currency", currency), zap.String("origin", origin.String()))

	for ; attempt <= a.maxAttempts && !remaining.IsEmpty(); attempt++ {
		a.metrics.ObserveRecoveryAttempt(currency)
		logger.Info("recovering missing blocks",
			zap.Int("attempt", attempt),
			zap.Uint64("head", current.Number),
			zap.Stringer("missing", remaining))

		candidates, err := a.candidates(ctx, origin, remaining)
		if err != nil {
			if ctx.Err() != nil {
				return remaining, ctx.Err()
			}
			logger.Warn("list candidate peers failed", zap.Error(err))
		}
		for _, p := range candidates {
			if remaining.IsEmpty() {
				break
			}
			if err := a.recoverFrom(ctx, p, currency, remaining); err != nil {
				return remaining, err
			}
		}

		if remaining.IsEmpty() || attempt == a.maxAttempts {
			break
		}
		if err := a.sleep(ctx, a.backoff); err != nil {
			return remaining, err
		}
		if head, err := a.client.CurrentBlock(ctx, origin); err == nil {
			current = head
		} else if ctx.Err() != nil {
			return remaining, ctx.Err()
		}
	}

	if !remaining.IsEmpty() {
		logger.Warn("blocks still missing after recovery", zap.Stringer("missing", remaining))
	}
	return remaining, nil
}

func (a *RecoveryAgent) candidates(ctx context.Context, origin model.Peer, remaining *model.MissingSet) ([]model.Peer, error) {
	if a.registry == nil {
		return nil, nil
	}
	peers, err := a.registry.UpPeers(ctx, origin.Currency, origin.API)
	if err != nil {
		return nil, fmt.Errorf("list peers: %w", err)
	}
	lowest, _ := remaining.Lowest()
	out := make([]model.Peer, 0, len(peers))
	for _, p := range peers {
		if p.ID == origin.ID || p.Stats.BlockNumber < lowest {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// recoverFrom tries every remaining entry on p, ranges in bulk and singles one by one.
func (a *RecoveryAgent) recoverFrom(ctx context.Context, p model.Peer, currency string, remaining *model.MissingSet) error {
	for _, entry := range remaining.Entries() {
		if entry.From > p.Stats.BlockNumber {
			continue
		}
		var (
			still *model.MissingSet
			err   error
		)
		if entry.IsRange() {
			still, err = a.fetcher.fetchBulk(ctx, p, currency, entry.From, entry.To, nil, false)
		} else {
			still, err = a.fetcher.fetchSingle(ctx, p, currency, entry.From, entry.To, nil, false)
		}
		if err != nil {
			return err
		}
		remaining.Remove(entry)
		remaining.AddAll(still)
	}
	return nil
}
