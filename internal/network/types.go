package network

import (
	"context"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// PeerClient is the subset of the peer protocol used for discovery and publication.
	PeerClient interface {
		Peers(ctx context.Context, p model.Peer) ([]model.Peer, error)
		CurrentBlock(ctx context.Context, p model.Peer) (model.Block, error)
		PublishPeering(ctx context.Context, p model.Peer, doc model.PeeringDocument) error
	}
	// CurrentBlockReader returns the local head of a currency.
	CurrentBlockReader interface {
		Current(ctx context.Context, currency string) (model.Block, error)
	}
)
