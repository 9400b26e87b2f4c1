package model

import (
	"fmt"
	"sort"
	"strings"
)

// MissingEntry is a block number (From == To) or an inclusive range that could not be persisted.
type MissingEntry struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Single builds an entry for one block number.
func Single(n uint64) MissingEntry {
	return MissingEntry{From: n, To: n}
}

// Range builds an inclusive range entry.
func Range(from, to uint64) MissingEntry {
	if to < from {
		from, to = to, from
	}
	return MissingEntry{From: from, To: to}
}

// IsRange reports whether the entry spans more than one block.
func (e MissingEntry) IsRange() bool {
	return e.To > e.From
}

// Len returns the number of blocks covered.
func (e MissingEntry) Len() uint64 {
	return e.To - e.From + 1
}

func (e MissingEntry) String() string {
	if e.IsRange() {
		return fmt.Sprintf("%d-%d", e.From, e.To)
	}
	return fmt.Sprintf("%d", e.From)
}

// MissingSet is a sorted set of missing entries, keyed by their starting number.
// The zero value is ready to use. Not safe for concurrent use.
type MissingSet struct {
	entries map[uint64]MissingEntry
}

// NewMissingSet builds a set from entries.
func NewMissingSet(entries ...MissingEntry) *MissingSet {
	s := &MissingSet{}
	for _, e := range entries {
		s.Add(e)
	}
	return s
}

// Add inserts an entry, replacing any entry starting at the same number.
func (s *MissingSet) Add(e MissingEntry) {
	if s.entries == nil {
		s.entries = make(map[uint64]MissingEntry)
	}
	s.entries[e.From] = e
}

// AddAll inserts every entry of o.
func (s *MissingSet) AddAll(o *MissingSet) {
	if o == nil {
		return
	}
	for _, e := range o.entries {
		s.Add(e)
	}
}

// Remove deletes the entry starting at e.From.
func (s *MissingSet) Remove(e MissingEntry) {
	delete(s.entries, e.From)
}

// Len returns the number of entries.
func (s *MissingSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// IsEmpty reports whether nothing is missing. A nil set is empty.
func (s *MissingSet) IsEmpty() bool {
	return s.Len() == 0
}

// Entries returns entries sorted by starting number.
func (s *MissingSet) Entries() []MissingEntry {
	if s == nil {
		return nil
	}
	out := make([]MissingEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
	return out
}

// Numbers expands every entry into its block numbers, ascending.
func (s *MissingSet) Numbers() []uint64 {
	var out []uint64
	for _, e := range s.Entries() {
		for n := e.From; ; n++ {
			out = append(out, n)
			if n == e.To {
				break
			}
		}
	}
	return out
}

// Lowest returns the smallest missing number.
func (s *MissingSet) Lowest() (uint64, bool) {
	entries := s.Entries()
	if len(entries) == 0 {
		return 0, false
	}
	return entries[0].From, true
}

func (s *MissingSet) String() string {
	entries := s.Entries()
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
