package network

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/crypto"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
)

const peeringVersion = 10

// Publisher announces this node to the peers of a currency.
type Publisher struct {
	client    PeerClient
	registry  *Registry
	blocks    CurrentBlockReader
	signer    crypto.Signer
	endpoints []string
	logger    *zap.Logger
}

func NewPublisher(client PeerClient, registry *Registry, blocks CurrentBlockReader, signer crypto.Signer, endpoints []string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:    client,
		registry:  registry,
		blocks:    blocks,
		signer:    signer,
		endpoints: endpoints,
		logger:    logger.Named("peering"),
	}
}

// Document builds the signed peering document anchored on the local head.
func (p *Publisher) Document(ctx context.Context, currency string) (model.PeeringDocument, error) {
	head, err := p.blocks.Current(ctx, currency)
	if err != nil {
		return model.PeeringDocument{}, fmt.Errorf("read current block of %s: %w", currency, err)
	}
	doc := model.PeeringDocument{
		Version:   peeringVersion,
		Currency:  currency,
		Block:     head.Stamp(),
		Pubkey:    p.signer.Pubkey(),
		Endpoints: p.endpoints,
	}
	doc.Signature = p.signer.Sign([]byte(doc.Raw()))
	return doc, nil
}

// Publish sends the peering document to every reachable block-serving peer.
func (p *Publisher) Publish(ctx context.Context, currency string) error {
	if len(p.endpoints) == 0 {
		return nil
	}
	doc, err := p.Document(ctx, currency)
	if err != nil {
		return err
	}
	peers, err := p.registry.UpPeers(ctx, currency, model.BasicMerkledAPI)
	if err != nil {
		return err
	}

	var errs []error
	for _, peer := range peers {
		if err := p.client.PublishPeering(ctx, peer, doc); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Debug("publish peering failed", zap.String("peer", peer.String()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(peers) > 0 && len(errs) == len(peers) {
		return fmt.Errorf("publish peering of %s: %w", currency, errors.Join(errs...))
	}
	return nil
}
