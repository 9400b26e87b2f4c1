package transport

import (
	"context"

	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/synchro/blockchain"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// SynchroService runs synchronizations on demand.
	SynchroService interface {
		SyncBlocks(ctx context.Context, p model.Peer) (blockchain.Report, error)
		SyncBlockRange(ctx context.Context, p model.Peer, from, to uint64) (blockchain.Report, error)
		SynchronizeAll(ctx context.Context) error
		SynchronizePeer(ctx context.Context, p model.Peer) (*model.SynchroResult, error)
		Progress(currency string) blockchain.ProgressSnapshot
		LivePeers() []string
	}
	// PeerDirectory lists the known peers of a currency.
	PeerDirectory interface {
		Peers(ctx context.Context, currency, api string) ([]model.Peer, error)
	}
	HealthChecker interface {
		Check(ctx context.Context, in *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error)
	}
)
