package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

const (
	// MemberType is the document type of web-of-trust members, inside the currency index.
	MemberType = "member"

	membersScrollSize = 1000
	membersScrollTTL  = time.Minute
)

// MemberCollection returns the collection holding the members of currency.
func MemberCollection(currency string) store.Collection {
	return store.Collection{Index: currency, Type: MemberType}
}

// Member is the membership state derived from block events.
type Member struct {
	Pubkey   string `json:"pubkey"`
	IsMember bool   `json:"isMember"`
	// Block is the number of the block carrying the latest event.
	Block uint64 `json:"block"`
}

// Members replays joiners, leavers and exclusions of stored blocks into member documents.
type Members struct {
	store  store.DocumentStore
	logger *zap.Logger
}

func NewMembers(s store.DocumentStore, logger *zap.Logger) *Members {
	return &Members{store: s, logger: logger.Named("members")}
}

// RefreshMembers rebuilds the member documents of currency from its blocks.
func (m *Members) RefreshMembers(ctx context.Context, currency string) error {
	members := make(map[string]Member)
	apply := func(b model.Block) {
		for _, pk := range b.Joiners {
			members[pk] = Member{Pubkey: pk, IsMember: true, Block: b.Number}
		}
		for _, pk := range b.Leavers {
			members[pk] = Member{Pubkey: pk, IsMember: false, Block: b.Number}
		}
		for _, pk := range b.Excluded {
			members[pk] = Member{Pubkey: pk, IsMember: false, Block: b.Number}
		}
	}

	page, err := m.store.ScrollOpen(ctx, BlockCollection(currency), store.MatchAll(), membersScrollSize, membersScrollTTL, store.Asc(numberField))
	if err != nil {
		return fmt.Errorf("scroll blocks of %s: %w", currency, err)
	}
	for len(page.Hits) > 0 {
		for _, hit := range page.Hits {
			if hit.ID == model.CurrentBlockID {
				continue
			}
			var b model.Block
			if err := json.Unmarshal(hit.Source, &b); err != nil {
				return fmt.Errorf("decode block %s/%s: %w", currency, hit.ID, err)
			}
			if b.HasMemberEvents() {
				apply(b)
			}
		}
		if page, err = m.store.ScrollNext(ctx, page.ScrollID, membersScrollTTL); err != nil {
			return fmt.Errorf("scroll blocks of %s: %w", currency, err)
		}
	}

	if len(members) == 0 {
		return nil
	}
	ops := make([]store.BulkOp, 0, len(members))
	for pk, member := range members {
		raw, err := json.Marshal(member)
		if err != nil {
			return fmt.Errorf("encode member %s: %w", pk, err)
		}
		ops = append(ops, store.BulkOp{Action: store.BulkIndex, Collection: MemberCollection(currency), ID: pk, Source: raw})
	}
	results, err := m.store.BulkWrite(ctx, ops)
	if err != nil {
		return fmt.Errorf("write members of %s: %w", currency, err)
	}
	if failed := store.Failed(results); len(failed) > 0 {
		return fmt.Errorf("write member %s: %w", failed[0].ID, failed[0].Err)
	}
	m.logger.Info("members refreshed", zap.String("currency", currency), zap.Int("members", len(members)))
	return nil
}
