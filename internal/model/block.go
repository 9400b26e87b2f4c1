// Package model defines domain models for ledger replication.
package model

import "strconv"

// CurrentBlockID is the logical id mirroring the highest indexed block of a currency.
const CurrentBlockID = "current"

// Block represents a ledger block persisted per currency.
type Block struct {
	Currency     string   `json:"currency"`
	Number       uint64   `json:"number"`
	Hash         string   `json:"hash"`
	PreviousHash string   `json:"previousHash,omitempty"`
	MedianTime   int64    `json:"medianTime"`
	Time         int64    `json:"time,omitempty"`
	Issuer       string   `json:"issuer,omitempty"`
	Signature    string   `json:"signature,omitempty"`
	MembersCount uint64   `json:"membersCount,omitempty"`
	Joiners      []string `json:"joiners,omitempty"`
	Leavers      []string `json:"leavers,omitempty"`
	Excluded     []string `json:"excluded,omitempty"`
}

// ID returns the document id the block is stored under.
func (b Block) ID() string {
	return strconv.FormatUint(b.Number, 10)
}

// Stamp returns the "number-hash" block stamp used by peering documents.
func (b Block) Stamp() string {
	return strconv.FormatUint(b.Number, 10) + "-" + b.Hash
}

// HasMemberEvents reports whether the block changes the web of trust.
func (b Block) HasMemberEvents() bool {
	return len(b.Joiners) > 0 || len(b.Leavers) > 0 || len(b.Excluded) > 0
}

// LinksTo reports whether b directly follows prev.
func (b Block) LinksTo(prev Block) bool {
	return b.Number == prev.Number+1 && b.PreviousHash == prev.Hash
}
