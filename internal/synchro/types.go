package synchro

import (
	"context"
	"time"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/synchro/blockchain"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// RemoteStore scrolls a collection served by a peer.
	RemoteStore interface {
		ScrollOpen(ctx context.Context, p model.Peer, coll store.Collection, q store.Query, size int, ttl time.Duration, sorts ...store.Sort) (store.Page, error)
		ScrollNext(ctx context.Context, p model.Peer, coll store.Collection, scrollID string, ttl time.Duration) (store.Page, error)
	}
	// ChangePublisher forwards local writes to change listeners.
	ChangePublisher interface {
		Publish(ctx context.Context, e model.ChangeEvent)
	}
	// PeerClient is what the scheduler needs from a peer besides scrolling.
	PeerClient interface {
		Block(ctx context.Context, p model.Peer, number uint64) (model.Block, error)
		SubscribeChanges(ctx context.Context, p model.Peer, filter string, handle func(model.ChangeEvent)) error
	}
	// PeerLister returns the reachable peers of a currency for one API.
	PeerLister interface {
		UpPeers(ctx context.Context, currency, api string) ([]model.Peer, error)
	}
	// GenesisReader reads the signature of the locally stored genesis block.
	GenesisReader interface {
		GenesisSignature(ctx context.Context, currency string) (string, error)
	}
	// BlockSyncer replicates the block chain from a peer.
	BlockSyncer interface {
		IndexLastBlocks(ctx context.Context, p model.Peer, progress *blockchain.Progress) (blockchain.Report, error)
		IndexBlocksRange(ctx context.Context, p model.Peer, from, to uint64, progress *blockchain.Progress) (blockchain.Report, error)
	}
	Metrics interface {
		ObserveAction(collection string, err error, started time.Time)
		ObserveDocuments(collection, outcome string, n int64)
		ObserveScrollReopen(collection string)
		ObservePeer(currency, api string, err error)
		ObserveLiveEvent(collection string)
	}
)
