package synchro

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/crypto"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/repository/memory"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

const testCurrency = "g1"

var (
	testCollection = store.Collection{Index: "user", Type: "profile"}
	testNow        = time.Unix(1_700_000_000, 0)
)

func testPeer(host string) model.Peer {
	return model.Peer{
		Currency: testCurrency,
		API:      model.UserAPI,
		Host:     host,
		Port:     443,
		Stats:    model.PeerStats{Status: model.PeerUp},
	}.WithID()
}

func nopMetrics(ctrl *gomock.Controller) *MockMetrics {
	m := NewMockMetrics(ctrl)
	m.EXPECT().ObserveAction(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	m.EXPECT().ObserveDocuments(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	m.EXPECT().ObserveScrollReopen(gomock.Any()).AnyTimes()
	m.EXPECT().ObservePeer(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	m.EXPECT().ObserveLiveEvent(gomock.Any()).AnyTimes()
	return m
}

func testKeyPair(t *testing.T) *crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

// signedDoc builds a profile issued by signer at the given epoch second.
func signedDoc(t *testing.T, signer crypto.Signer, title string, at int64) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"issuer": signer.Pubkey(),
		"time":   at,
		"title":  title,
	})
	require.NoError(t, err)
	doc, err := crypto.SignDocument(signer, raw)
	require.NoError(t, err)
	return doc
}

// tamper rewrites one field of a signed document without signing it again.
func tamper(t *testing.T, doc json.RawMessage, field string, value any) json.RawMessage {
	t.Helper()
	fields, err := store.Decode(doc)
	require.NoError(t, err)
	fields[field] = value
	out, err := json.Marshal(fields)
	require.NoError(t, err)
	return out
}

// fakeRemote serves scroll cursors from one in-memory store per peer.
type fakeRemote struct {
	mu     sync.Mutex
	stores map[string]*memory.Store
	// expireOnNext expires the cursor before answering the n-th ScrollNext call, 1-based.
	expireOnNext map[int]bool
	expireAlways bool
	openTTLs     []time.Duration
	nexts        int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		stores:       make(map[string]*memory.Store),
		expireOnNext: make(map[int]bool),
	}
}

// publish stores count signed profiles on p, at testNow-count+i.
func (f *fakeRemote) publish(t *testing.T, p model.Peer, signer crypto.Signer, count int) []string {
	t.Helper()
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("doc-%03d", i)
		f.put(t, p, id, signedDoc(t, signer, id, testNow.Unix()-int64(count)+int64(i)))
		ids = append(ids, id)
	}
	return ids
}

func (f *fakeRemote) put(t *testing.T, p model.Peer, id string, doc json.RawMessage) {
	t.Helper()
	require.NoError(t, f.storeOf(p).Update(context.Background(), testCollection, id, doc, true))
}

func (f *fakeRemote) storeOf(p model.Peer) *memory.Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stores[p.ID]
	if !ok {
		s = memory.New()
		_ = s.CreateIndex(context.Background(), testCollection.Index)
		f.stores[p.ID] = s
	}
	return s
}

func (f *fakeRemote) ScrollOpen(ctx context.Context, p model.Peer, coll store.Collection, q store.Query, size int, ttl time.Duration, sorts ...store.Sort) (store.Page, error) {
	f.mu.Lock()
	f.openTTLs = append(f.openTTLs, ttl)
	f.mu.Unlock()
	return f.storeOf(p).ScrollOpen(ctx, coll, q, size, ttl, sorts...)
}

func (f *fakeRemote) ScrollNext(ctx context.Context, p model.Peer, _ store.Collection, scrollID string, ttl time.Duration) (store.Page, error) {
	f.mu.Lock()
	f.nexts++
	expire := f.expireAlways || f.expireOnNext[f.nexts]
	f.mu.Unlock()

	s := f.storeOf(p)
	if expire {
		s.ExpireScroll(scrollID)
	}
	return s.ScrollNext(ctx, scrollID, ttl)
}

func (f *fakeRemote) opens() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.openTTLs...)
}

// recordingBus keeps every published event.
type recordingBus struct {
	mu     sync.Mutex
	events []model.ChangeEvent
}

func (b *recordingBus) Publish(_ context.Context, e model.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) published() []model.ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.ChangeEvent(nil), b.events...)
}

func newTestAction(t *testing.T, cfg ActionConfig, local store.DocumentStore, remote RemoteStore, changes ChangePublisher) *Action {
	t.Helper()
	if cfg.Collection == (store.Collection{}) {
		cfg.Collection = testCollection
	}
	if cfg.API == "" {
		cfg.API = model.UserAPI
	}
	ctrl := gomock.NewController(t)
	a := NewAction(cfg, local, remote, crypto.Ed25519Verifier{}, changes, nopMetrics(ctrl), zap.NewNop())
	a.now = func() time.Time { return testNow }
	return a
}

func newLocalStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	require.NoError(t, s.CreateIndex(context.Background(), testCollection.Index))
	return s
}

// fakePeerClient answers genesis requests and replays change events on subscription.
type fakePeerClient struct {
	mu      sync.Mutex
	genesis map[string]model.Block
	events  []model.ChangeEvent
	// hold keeps subscriptions open until their context is done.
	hold          bool
	subscriptions int
	filters       []string
}

func (c *fakePeerClient) Block(_ context.Context, p model.Peer, number uint64) (model.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.genesis[p.ID]
	if !ok || number != 0 {
		return model.Block{}, fmt.Errorf("block %d of %s: not served", number, p)
	}
	return b, nil
}

func (c *fakePeerClient) SubscribeChanges(ctx context.Context, _ model.Peer, filter string, handle func(model.ChangeEvent)) error {
	c.mu.Lock()
	c.subscriptions++
	c.filters = append(c.filters, filter)
	events := append([]model.ChangeEvent(nil), c.events...)
	hold := c.hold
	c.mu.Unlock()

	for _, e := range events {
		handle(e)
	}
	if hold {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (c *fakePeerClient) subscribed() (int, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscriptions, append([]string(nil), c.filters...)
}

// staticGenesis returns a fixed local genesis signature.
type staticGenesis string

func (g staticGenesis) GenesisSignature(context.Context, string) (string, error) {
	return string(g), nil
}

// peerList serves fixed peers per currency and api and signals every lookup.
type peerList struct {
	peers map[string][]model.Peer
	calls chan string
}

func (l *peerList) UpPeers(_ context.Context, currency, api string) ([]model.Peer, error) {
	if l.calls != nil {
		l.calls <- currency + "/" + api
	}
	return l.peers[currency+"/"+api], nil
}
