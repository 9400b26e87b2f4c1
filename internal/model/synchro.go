package model

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SynchroExecution is the bookmark of one synchronization run against a peer.
type SynchroExecution struct {
	ID                  string      `json:"id"`
	Peer                string      `json:"peer"`
	Currency            string      `json:"currency"`
	API                 string      `json:"api"`
	Time                int64       `json:"time"`
	ExecutionDurationMs int64       `json:"executionTime"`
	Result              ResultTotal `json:"result"`
}

// ResultTotal holds the counters of one collection, or of a whole run.
type ResultTotal struct {
	Inserts           int64 `json:"inserts"`
	Updates           int64 `json:"updates"`
	Deletes           int64 `json:"deletes"`
	InvalidSignatures int64 `json:"invalidSignatures"`
	InvalidTimes      int64 `json:"invalidTimes"`
}

func (t *ResultTotal) add(o ResultTotal) {
	t.Inserts += o.Inserts
	t.Updates += o.Updates
	t.Deletes += o.Deletes
	t.InvalidSignatures += o.InvalidSignatures
	t.InvalidTimes += o.InvalidTimes
}

// SynchroResult accumulates counters per collection during a run. Safe for concurrent use.
type SynchroResult struct {
	mu     sync.Mutex
	totals map[string]*ResultTotal
}

// NewSynchroResult returns an empty result.
func NewSynchroResult() *SynchroResult {
	return &SynchroResult{totals: make(map[string]*ResultTotal)}
}

func (r *SynchroResult) update(collection string, fn func(*ResultTotal)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.totals[collection]
	if !ok {
		t = &ResultTotal{}
		r.totals[collection] = t
	}
	fn(t)
}

func (r *SynchroResult) AddInserts(collection string, n int64) {
	r.update(collection, func(t *ResultTotal) { t.Inserts += n })
}

func (r *SynchroResult) AddUpdates(collection string, n int64) {
	r.update(collection, func(t *ResultTotal) { t.Updates += n })
}

func (r *SynchroResult) AddDeletes(collection string, n int64) {
	r.update(collection, func(t *ResultTotal) { t.Deletes += n })
}

func (r *SynchroResult) AddInvalidSignatures(collection string, n int64) {
	r.update(collection, func(t *ResultTotal) { t.InvalidSignatures += n })
}

func (r *SynchroResult) AddInvalidTimes(collection string, n int64) {
	r.update(collection, func(t *ResultTotal) { t.InvalidTimes += n })
}

// Collection returns a copy of the counters recorded for one collection.
func (r *SynchroResult) Collection(collection string) ResultTotal {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.totals[collection]; ok {
		return *t
	}
	return ResultTotal{}
}

// Totals sums counters over all collections.
func (r *SynchroResult) Totals() ResultTotal {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum ResultTotal
	for _, t := range r.totals {
		sum.add(*t)
	}
	return sum
}

// Collections returns the sorted collection keys having counters.
func (r *SynchroResult) Collections() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.totals))
	for k := range r.totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *SynchroResult) String() string {
	t := r.Totals()
	return fmt.Sprintf("inserts: %d, updates: %d, deletes: %d, invalid signatures: %d, invalid times: %d",
		t.Inserts, t.Updates, t.Deletes, t.InvalidSignatures, t.InvalidTimes)
}

// SyncStatus is the final state of a block synchronization run.
type SyncStatus string

var (
	SyncSuccess SyncStatus = "SUCCESS"
	SyncFailed  SyncStatus = "FAILED"
	SyncStopped SyncStatus = "STOPPED"
)

// CollectionKey joins an index and a type into the "index/type" key.
func CollectionKey(index, typ string) string {
	return index + "/" + typ
}

// SplitCollectionKey parses an "index/type" key.
func SplitCollectionKey(key string) (index, typ string, ok bool) {
	index, typ, ok = strings.Cut(key, "/")
	if !ok || index == "" || typ == "" {
		return "", "", false
	}
	return index, typ, true
}
