// Package network keeps track of remote peers per currency.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

const (
	// PeerType is the document type peers are stored under, inside the currency index.
	PeerType = "peer"

	maxPeers = 1000
)

// PeerCollection returns the collection holding the peers of currency.
func PeerCollection(currency string) store.Collection {
	return store.Collection{Index: currency, Type: PeerType}
}

// Registry persists peers and their last observed stats.
type Registry struct {
	store  store.DocumentStore
	logger *zap.Logger
	now    func() time.Time
}

func NewRegistry(s store.DocumentStore, logger *zap.Logger) *Registry {
	return &Registry{store: s, logger: logger.Named("peer_registry"), now: time.Now}
}

// Save upserts p, deriving its id when missing.
func (r *Registry) Save(ctx context.Context, p model.Peer) (model.Peer, error) {
	p = p.WithID()
	doc, err := json.Marshal(p)
	if err != nil {
		return p, fmt.Errorf("encode peer %s: %w", p.ID, err)
	}
	if err := r.store.Update(ctx, PeerCollection(p.Currency), p.ID, doc, false); err != nil {
		return p, fmt.Errorf("save peer %s: %w", p.ID, err)
	}
	return p, nil
}

// Get loads a peer by id.
func (r *Registry) Get(ctx context.Context, currency, id string) (model.Peer, error) {
	raw, err := r.store.GetByID(ctx, PeerCollection(currency), id)
	if err != nil {
		return model.Peer{}, err
	}
	var p model.Peer
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Peer{}, fmt.Errorf("decode peer %s: %w", id, err)
	}
	return p, nil
}

// Remove deletes a peer. Removing an unknown peer is not an error.
func (r *Registry) Remove(ctx context.Context, currency, id string) error {
	err := r.store.Delete(ctx, PeerCollection(currency), id, false)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("remove peer %s: %w", id, err)
	}
	return nil
}

// Peers lists the peers of currency serving api. An empty api lists every peer.
func (r *Registry) Peers(ctx context.Context, currency, api string) ([]model.Peer, error) {
	q := store.MatchAll()
	if api != "" {
		q = q.Term("api", api)
	}
	return r.search(ctx, currency, q)
}

// UpPeers lists reachable peers of currency serving api, highest head first.
func (r *Registry) UpPeers(ctx context.Context, currency, api string) ([]model.Peer, error) {
	q := store.MatchAll().Term("stats.status", string(model.PeerUp))
	if api != "" {
		q = q.Term("api", api)
	}
	return r.search(ctx, currency, q, store.Desc("stats.blockNumber"))
}

func (r *Registry) search(ctx context.Context, currency string, q store.Query, sorts ...store.Sort) ([]model.Peer, error) {
	page, err := r.store.Search(ctx, PeerCollection(currency), q, 0, maxPeers, append(sorts, store.Asc(store.IDField))...)
	if err != nil {
		return nil, fmt.Errorf("search peers of %s: %w", currency, err)
	}
	peers := make([]model.Peer, 0, len(page.Hits))
	for _, hit := range page.Hits {
		var p model.Peer
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			r.logger.Warn("skip undecodable peer", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		peers = append(peers, p)
	}
	return peers, nil
}

// ReportStats records the outcome of contacting p: UP at head when err is nil, DOWN otherwise.
func (r *Registry) ReportStats(ctx context.Context, p model.Peer, head model.Block, err error) (model.Peer, error) {
	if err != nil {
		p.MarkDown()
	} else {
		p.MarkUp(head, r.now())
	}
	return r.Save(ctx, p)
}
