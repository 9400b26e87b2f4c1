package synchro

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/synchro/blockchain"
)

// Service exposes on-demand synchronization next to the scheduled runs.
type Service struct {
	scheduler *Scheduler
	logger    *zap.Logger
}

func NewService(scheduler *Scheduler, logger *zap.Logger) *Service {
	return &Service{scheduler: scheduler, logger: logger.Named("synchro_service")}
}

// SyncBlocks replicates the chain of p's currency up to p's head.
func (s *Service) SyncBlocks(ctx context.Context, p model.Peer) (blockchain.Report, error) {
	report, err := s.scheduler.SyncBlocks(ctx, p)
	if err != nil {
		return report, fmt.Errorf("sync blocks from %s: %w", p, err)
	}
	return report, nil
}

// SyncBlockRange replicates blocks from..to from p.
func (s *Service) SyncBlockRange(ctx context.Context, p model.Peer, from, to uint64) (blockchain.Report, error) {
	if to < from {
		return blockchain.Report{}, fmt.Errorf("invalid block range %d..%d", from, to)
	}
	report, err := s.scheduler.SyncBlockRange(ctx, p, from, to)
	if err != nil {
		return report, fmt.Errorf("sync blocks %d..%d from %s: %w", from, to, p, err)
	}
	return report, nil
}

// SynchronizeAll runs one full replication pass outside the schedule.
func (s *Service) SynchronizeAll(ctx context.Context) error {
	s.logger.Info("synchronization requested")
	return s.scheduler.SynchronizeAll(ctx)
}

// SynchronizePeer replicates the collections served by p.
func (s *Service) SynchronizePeer(ctx context.Context, p model.Peer) (*model.SynchroResult, error) {
	return s.scheduler.SynchronizePeer(ctx, p)
}

func (s *Service) Progress(currency string) blockchain.ProgressSnapshot {
	return s.scheduler.Progress(currency)
}

func (s *Service) LivePeers() []string {
	return s.scheduler.LivePeers()
}
