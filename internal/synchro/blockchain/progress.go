package blockchain

import (
	"sync"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
)

// ProgressSnapshot is a point-in-time copy of a Progress.
type ProgressSnapshot struct {
	Currency string           `json:"currency"`
	Peer     string           `json:"peer,omitempty"`
	First    uint64           `json:"first"`
	Last     uint64           `json:"last"`
	Current  uint64           `json:"current"`
	Percent  int              `json:"percent"`
	Status   model.SyncStatus `json:"status,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// Progress reports how far a run went. A nil *Progress ignores every update.
type Progress struct {
	mu   sync.RWMutex
	snap ProgressSnapshot
}

func NewProgress(currency string) *Progress {
	return &Progress{snap: ProgressSnapshot{Currency: currency}}
}

func (p *Progress) start(peer string, first, last uint64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Peer = peer
	p.snap.First, p.snap.Last, p.snap.Current = first, last, first
	p.snap.Status, p.snap.Message = "", ""
}

func (p *Progress) advance(current uint64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Current = current
}

func (p *Progress) message(msg string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Message = msg
}

func (p *Progress) finish(status model.SyncStatus, msg string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if status == model.SyncSuccess {
		p.snap.Current = p.snap.Last
	}
	p.snap.Status, p.snap.Message = status, msg
}

// Snapshot returns a copy with Percent filled.
func (p *Progress) Snapshot() ProgressSnapshot {
	if p == nil {
		return ProgressSnapshot{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.snap
	s.Percent = Percent(s.First, s.Last, s.Current)
	return s
}

// Percent returns (current-first)*100/(last-first) clamped to [0,100].
func Percent(first, last, current uint64) int {
	if current <= first {
		if last <= first && current >= last {
			return 100
		}
		return 0
	}
	if current >= last {
		return 100
	}
	return int((current - first) * 100 / (last - first))
}
