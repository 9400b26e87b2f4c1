package blockchain

import (
	"context"
	"time"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// PeerClient reads blocks from a remote peer. Implementations retry transient failures.
	PeerClient interface {
		CurrentBlock(ctx context.Context, p model.Peer) (model.Block, error)
		Block(ctx context.Context, p model.Peer, number uint64) (model.Block, error)
		Blocks(ctx context.Context, p model.Peer, count int, from uint64) ([]model.Block, error)
	}
	// PeerRegistry lists candidate peers and records what a run observed.
	PeerRegistry interface {
		UpPeers(ctx context.Context, currency, api string) ([]model.Peer, error)
		ReportStats(ctx context.Context, p model.Peer, head model.Block, err error) (model.Peer, error)
	}
	// MembersRefresher recomputes web-of-trust members from stored blocks.
	MembersRefresher interface {
		RefreshMembers(ctx context.Context, currency string) error
	}
	Metrics interface {
		ObserveRun(currency, syncStatus string, started time.Time)
		ObserveIndexed(currency, mode string, blocks int)
		ObserveMissing(currency, mode string, blocks int)
		ObserveFork(currency string, probes int, resolved bool)
		ObserveRecoveryAttempt(currency string)
		ObserveStaleCurrent(currency string)
	}
)
