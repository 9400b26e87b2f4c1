package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/peer"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

const testCurrency = "g1"

// makeChain builds blocks 0..last. Blocks below shared reuse base hashes, so two chains
// built with the same base agree up to shared-1.
func makeChain(last uint64, seed string, base []model.Block, shared uint64) []model.Block {
	chain := make([]model.Block, 0, last+1)
	for n := uint64(0); n <= last; n++ {
		if n < shared && int(n) < len(base) {
			chain = append(chain, base[n])
			continue
		}
		b := model.Block{
			Currency:   testCurrency,
			Number:     n,
			Hash:       fmt.Sprintf("%s-%d", seed, n),
			MedianTime: int64(1_600_000_000 + n),
			Signature:  "sig-" + seed,
		}
		if n > 0 {
			b.PreviousHash = chain[n-1].Hash
		}
		chain = append(chain, b)
	}
	return chain
}

func testPeer(host string, head uint64) model.Peer {
	return model.Peer{
		Currency: testCurrency,
		API:      model.BasicMerkledAPI,
		Host:     host,
		Port:     443,
		Stats:    model.PeerStats{Status: model.PeerUp, BlockNumber: head},
	}.WithID()
}

// fakeNetwork serves a chain per peer id.
type fakeNetwork struct {
	mu     sync.Mutex
	chains map[string][]model.Block
	fail   map[string]map[uint64]bool
	calls  map[string]int
	// onBlock runs before Block answers; a non-nil error is returned instead.
	onBlock func(p model.Peer, n uint64) error
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		chains: make(map[string][]model.Block),
		fail:   make(map[string]map[uint64]bool),
		calls:  make(map[string]int),
	}
}

func (f *fakeNetwork) serve(p model.Peer, chain []model.Block, failing ...uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chains[p.ID] = chain
	f.fail[p.ID] = make(map[uint64]bool)
	for _, n := range failing {
		f.fail[p.ID][n] = true
	}
}

func (f *fakeNetwork) count(p model.Peer, op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[p.ID+"/"+op]
}

func (f *fakeNetwork) CurrentBlock(ctx context.Context, p model.Peer) (model.Block, error) {
	if err := ctx.Err(); err != nil {
		return model.Block{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[p.ID+"/current"]++
	chain, ok := f.chains[p.ID]
	if !ok || len(chain) == 0 {
		return model.Block{}, peer.ErrUnavailable
	}
	return chain[len(chain)-1], nil
}

func (f *fakeNetwork) Block(ctx context.Context, p model.Peer, number uint64) (model.Block, error) {
	if f.onBlock != nil {
		if err := f.onBlock(p, number); err != nil {
			return model.Block{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return model.Block{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[p.ID+"/block"]++
	chain := f.chains[p.ID]
	if f.fail[p.ID][number] {
		return model.Block{}, peer.ErrUnavailable
	}
	if number >= uint64(len(chain)) {
		return model.Block{}, peer.ErrNotFound
	}
	return chain[number], nil
}

func (f *fakeNetwork) Blocks(ctx context.Context, p model.Peer, count int, from uint64) ([]model.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[p.ID+"/blocks"]++
	chain := f.chains[p.ID]
	var out []model.Block
	for n := from; n < from+uint64(count) && n < uint64(len(chain)); n++ {
		if f.fail[p.ID][n] {
			continue
		}
		out = append(out, chain[n])
	}
	return out, nil
}

// staticRegistry returns fixed peers and records reported stats.
type staticRegistry struct {
	mu      sync.Mutex
	peers   []model.Peer
	reports []error
}

func (r *staticRegistry) UpPeers(_ context.Context, _, _ string) ([]model.Peer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Peer(nil), r.peers...), nil
}

func (r *staticRegistry) ReportStats(_ context.Context, p model.Peer, head model.Block, err error) (model.Peer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, err)
	if err == nil {
		p.Stats.BlockNumber = head.Number
	}
	return p, nil
}

// flakyStore fails the first bulk write of each listed id.
type flakyStore struct {
	store.DocumentStore
	mu       sync.Mutex
	failOnce map[string]bool
}

func (s *flakyStore) BulkWrite(ctx context.Context, ops []store.BulkOp) ([]store.BulkItemResult, error) {
	s.mu.Lock()
	var pass []store.BulkOp
	failed := make(map[string]bool)
	for _, op := range ops {
		if s.failOnce[op.ID] {
			delete(s.failOnce, op.ID)
			failed[op.ID] = true
			continue
		}
		pass = append(pass, op)
	}
	s.mu.Unlock()

	results, err := s.DocumentStore.BulkWrite(ctx, pass)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.BulkItemResult, len(results))
	for _, r := range results {
		byID[r.ID] = r
	}
	out := make([]store.BulkItemResult, 0, len(ops))
	for _, op := range ops {
		if failed[op.ID] {
			out = append(out, store.BulkItemResult{ID: op.ID, Err: fmt.Errorf("version conflict")})
			continue
		}
		out = append(out, byID[op.ID])
	}
	return out, nil
}

func nopMetrics(ctrl *gomock.Controller) *MockMetrics {
	m := NewMockMetrics(ctrl)
	m.EXPECT().ObserveRun(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	m.EXPECT().ObserveIndexed(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	m.EXPECT().ObserveMissing(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	m.EXPECT().ObserveFork(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	m.EXPECT().ObserveRecoveryAttempt(gomock.Any()).AnyTimes()
	m.EXPECT().ObserveStaleCurrent(gomock.Any()).AnyTimes()
	return m
}

func storeChain(t *testing.T, blocks *Blocks, chain []model.Block, current bool) {
	t.Helper()
	ctx := context.Background()
	for _, b := range chain {
		require.NoError(t, blocks.Save(ctx, b))
	}
	if current && len(chain) > 0 {
		require.NoError(t, blocks.SetCurrent(ctx, chain[len(chain)-1]))
	}
}

func requireLocalChain(t *testing.T, blocks *Blocks, want []model.Block) {
	t.Helper()
	ctx := context.Background()
	for _, w := range want {
		got, err := blocks.Get(ctx, testCurrency, w.Number)
		require.NoError(t, err, "block %d", w.Number)
		require.Equal(t, w.Hash, got.Hash, "block %d", w.Number)
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
