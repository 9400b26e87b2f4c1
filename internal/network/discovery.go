package network

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/pkg/workerpool"
)

// Discovery refreshes the registry from the peer lists of seed peers.
type Discovery struct {
	client   PeerClient
	registry *Registry
	seeds    []model.Peer
	apis     []string
	workers  int
	logger   *zap.Logger
}

func NewDiscovery(client PeerClient, registry *Registry, seeds []model.Peer, apis []string, workers int, logger *zap.Logger) *Discovery {
	return &Discovery{
		client:   client,
		registry: registry,
		seeds:    seeds,
		apis:     apis,
		workers:  workers,
		logger:   logger.Named("discovery"),
	}
}

// Refresh merges the peers announced by the seeds of currency into the registry and
// probes the head of every block-serving peer. It returns the number of peers saved.
func (d *Discovery) Refresh(ctx context.Context, currency string) (int, error) {
	found := make(map[string]model.Peer)
	for _, seed := range d.seeds {
		if seed.Currency != currency {
			continue
		}
		seed = seed.WithID()
		found[seed.ID] = seed

		announced, err := d.client.Peers(ctx, seed)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			d.logger.Warn("list peers failed", zap.String("seed", seed.String()), zap.Error(err))
			continue
		}
		for _, p := range announced {
			if p.Currency != currency || !d.wanted(p.API) {
				continue
			}
			if _, ok := found[p.ID]; !ok {
				found[p.ID] = p
			}
		}
	}

	peers := make([]model.Peer, 0, len(found))
	for _, p := range found {
		peers = append(peers, p)
	}
	slices.SortFunc(peers, func(a, b model.Peer) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	saved := make(chan struct{}, len(peers))
	err := workerpool.Process(ctx, d.workers, peers, func(ctx context.Context, p model.Peer) error {
		if err := d.probe(ctx, p); err != nil {
			d.logger.Warn("save peer failed", zap.String("peer", p.String()), zap.Error(err))
			return nil
		}
		saved <- struct{}{}
		return nil
	}, nil)
	close(saved)
	if err != nil {
		return len(saved), fmt.Errorf("refresh peers of %s: %w", currency, err)
	}

	d.logger.Info("peers refreshed", zap.String("currency", currency), zap.Int("peers", len(saved)))
	return len(saved), nil
}

func (d *Discovery) probe(ctx context.Context, p model.Peer) error {
	if p.API != model.BasicMerkledAPI {
		_, err := d.registry.Save(ctx, p)
		return err
	}
	head, err := d.client.CurrentBlock(ctx, p)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	_, err = d.registry.ReportStats(ctx, p, head, err)
	return err
}

func (d *Discovery) wanted(api string) bool {
	return len(d.apis) == 0 || slices.Contains(d.apis, api)
}
