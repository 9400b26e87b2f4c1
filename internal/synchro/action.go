// Package synchro replicates document collections from peers and schedules replication runs.
package synchro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/crypto"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

var (
	// ErrInvalidDocument marks a document rejected by validation. It is counted, never fatal.
	ErrInvalidDocument = errors.New("invalid document")

	errBadSignature = fmt.Errorf("%w: bad signature", ErrInvalidDocument)
	errBadTime      = fmt.Errorf("%w: implausible time", ErrInvalidDocument)
	errIssuer       = fmt.Errorf("%w: issuer changed", ErrInvalidDocument)
)

// Action replicates one collection from the peers serving its API.
type Action struct {
	cfg      ActionConfig
	local    store.DocumentStore
	remote   RemoteStore
	verifier crypto.Verifier
	changes  ChangePublisher
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewAction builds the action for cfg.Collection. changes may be nil.
func NewAction(
	cfg ActionConfig,
	local store.DocumentStore,
	remote RemoteStore,
	verifier crypto.Verifier,
	changes ChangePublisher,
	metrics Metrics,
	logger *zap.Logger,
) *Action {
	cfg = cfg.withDefaults()
	return &Action{
		cfg:      cfg,
		local:    local,
		remote:   remote,
		verifier: verifier,
		changes:  changes,
		metrics:  metrics,
		logger:   logger.Named("synchro_action").With(zap.Stringer("collection", cfg.Collection)),
		now:      time.Now,
	}
}

// Key returns the "index/type" key of the replicated collection.
func (a *Action) Key() string {
	return a.cfg.Collection.String()
}

func (a *Action) API() string {
	return a.cfg.API
}

func (a *Action) Collection() store.Collection {
	return a.cfg.Collection
}

// EnsureIndex creates the local index when it is missing.
func (a *Action) EnsureIndex(ctx context.Context) error {
	exists, err := a.local.IndexExists(ctx, a.cfg.Collection.Index)
	if err != nil {
		return fmt.Errorf("check index %s: %w", a.cfg.Collection.Index, err)
	}
	if exists {
		return nil
	}
	if err := a.local.CreateIndex(ctx, a.cfg.Collection.Index); err != nil {
		return fmt.Errorf("create index %s: %w", a.cfg.Collection.Index, err)
	}
	return nil
}

// HandleSynchronize pulls every document of p with a version at or after fromTime.
// A collection whose index does not exist locally is skipped.
func (a *Action) HandleSynchronize(ctx context.Context, p model.Peer, fromTime int64, result *model.SynchroResult) (err error) {
	exists, err := a.local.IndexExists(ctx, a.cfg.Collection.Index)
	if err != nil {
		return fmt.Errorf("check index %s: %w", a.cfg.Collection.Index, err)
	}
	if !exists {
		a.logger.Debug("local index absent, skipping", zap.String("peer", p.String()))
		return nil
	}

	started := time.Now()
	defer func() {
		a.metrics.ObserveAction(a.Key(), err, started)
	}()

	q := store.MatchAll().Gte(a.cfg.VersionField, fromTime)
	sorts := []store.Sort{store.Asc(a.cfg.VersionField), store.Asc(store.IDField)}

	processed, err := a.scroll(ctx, p, q, sorts, func(ctx context.Context, hits []store.Hit) error {
		for _, hit := range hits {
			if err := a.upsert(ctx, hit.ID, hit.Source, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("synchronize %s from %s: %w", a.Key(), p, err)
	}

	a.logger.Debug("collection synchronized",
		zap.String("peer", p.String()),
		zap.Int64("from_time", fromTime),
		zap.Int64("documents", processed),
		zap.Any("result", result.Collection(a.Key())))
	return nil
}

// scroll pages through the peer cursor. An expired cursor is reopened with a longer
// time-to-live and the documents already handled are skipped.
func (a *Action) scroll(ctx context.Context, p model.Peer, q store.Query, sorts []store.Sort, handle func(context.Context, []store.Hit) error) (int64, error) {
	var (
		processed int64
		reopens   int
		ttl       = a.cfg.ScrollTTL
	)

open:
	for {
		page, err := a.remote.ScrollOpen(ctx, p, a.cfg.Collection, q, a.cfg.ScrollBatchSize, ttl, sorts...)
		if err != nil {
			return processed, fmt.Errorf("open scroll: %w", err)
		}
		skip := processed

		for {
			hits := page.Hits
			if skip > 0 {
				n := min(skip, int64(len(hits)))
				hits = hits[n:]
				skip -= n
			}
			if len(hits) > 0 {
				if err := handle(ctx, hits); err != nil {
					return processed, err
				}
				processed += int64(len(hits))
			}
			if len(page.Hits) == 0 || (skip == 0 && page.Total > 0 && processed >= page.Total) {
				return processed, nil
			}
			if err := ctx.Err(); err != nil {
				return processed, err
			}

			page, err = a.remote.ScrollNext(ctx, p, a.cfg.Collection, page.ScrollID, ttl)
			switch {
			case errors.Is(err, store.ErrScrollNotFound):
				if reopens >= a.cfg.ScrollMaxRetries {
					return processed, fmt.Errorf("cursor expired %d times: %w", reopens+1, err)
				}
				reopens++
				ttl += a.cfg.ScrollTTLIncrement
				a.metrics.ObserveScrollReopen(a.Key())
				a.logger.Warn("scroll expired, reopening",
					zap.String("peer", p.String()),
					zap.Int("reopen", reopens),
					zap.Duration("ttl", ttl),
					zap.Int64("processed", processed))
				continue open
			case err != nil:
				return processed, fmt.Errorf("next scroll page: %w", err)
			}
		}
	}
}

// HandleChange applies one event of a peer change feed.
func (a *Action) HandleChange(ctx context.Context, p model.Peer, e model.ChangeEvent, result *model.SynchroResult) error {
	switch e.Operation {
	case model.ChangeCreate:
	case model.ChangeIndex:
		if !a.cfg.EnableUpdate {
			return nil
		}
	default:
		return nil
	}
	if !e.HasSource() {
		a.logger.Debug("change without source", zap.String("peer", p.String()), zap.String("id", e.ID))
		return nil
	}
	return a.upsert(ctx, e.ID, e.Source, result)
}

// upsert inserts an unknown document or replaces an older one from the same issuer.
// Only local store failures are returned.
func (a *Action) upsert(ctx context.Context, id string, source json.RawMessage, result *model.SynchroResult) error {
	key := a.Key()
	fields, err := store.Decode(source)
	if err != nil {
		a.malformed(id, err)
		return nil
	}
	issuer, _ := fields[a.cfg.IssuerField].(string)
	version, ok := store.AsInt64(fields[a.cfg.VersionField])
	if issuer == "" || !ok {
		a.malformed(id, fmt.Errorf("missing %s or %s", a.cfg.IssuerField, a.cfg.VersionField))
		return nil
	}

	existing, err := a.local.GetFieldsByID(ctx, a.cfg.Collection, id, a.cfg.IssuerField, a.cfg.VersionField)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := a.validate(issuer, version, source); err != nil {
			a.reject(id, err, result)
			return nil
		}
		if err := a.local.Update(ctx, a.cfg.Collection, id, source, false); err != nil {
			return fmt.Errorf("insert %s/%s: %w", key, id, err)
		}
		result.AddInserts(key, 1)
		a.metrics.ObserveDocuments(key, outcomeInsert, 1)
		a.publish(ctx, model.ChangeCreate, id, version, source)
		return nil
	case err != nil:
		return fmt.Errorf("read %s/%s: %w", key, id, err)
	}

	if !a.cfg.EnableUpdate {
		return nil
	}
	if owner, _ := existing[a.cfg.IssuerField].(string); owner != issuer {
		a.reject(id, errIssuer, result)
		return nil
	}
	if current, ok := store.AsInt64(existing[a.cfg.VersionField]); ok && current >= version {
		return nil
	}
	if err := a.validate(issuer, version, source); err != nil {
		a.reject(id, err, result)
		return nil
	}
	if err := a.local.Update(ctx, a.cfg.Collection, id, source, false); err != nil {
		return fmt.Errorf("update %s/%s: %w", key, id, err)
	}
	result.AddUpdates(key, 1)
	a.metrics.ObserveDocuments(key, outcomeUpdate, 1)
	a.publish(ctx, model.ChangeIndex, id, version, source)
	return nil
}

func (a *Action) validate(issuer string, version int64, source json.RawMessage) error {
	if a.cfg.EnableSignatureValidation {
		if err := crypto.VerifyDocument(a.verifier, issuer, source); err != nil {
			return fmt.Errorf("%w: %w", errBadSignature, err)
		}
	}
	if a.cfg.EnableTimeValidation {
		return a.checkTime(version)
	}
	return nil
}

func (a *Action) checkTime(version int64) error {
	now := a.now()
	t := time.Unix(version, 0)
	if t.After(now.Add(a.cfg.MaxFuture)) {
		return fmt.Errorf("%w: %s is in the future", errBadTime, t.UTC().Format(time.RFC3339))
	}
	if !a.cfg.AllowOldDocuments && a.cfg.MaxAge > 0 && t.Before(now.Add(-a.cfg.MaxAge)) {
		return fmt.Errorf("%w: %s is too old", errBadTime, t.UTC().Format(time.RFC3339))
	}
	return nil
}

func (a *Action) reject(id string, err error, result *model.SynchroResult) {
	key := a.Key()
	if errors.Is(err, errBadTime) {
		result.AddInvalidTimes(key, 1)
		a.metrics.ObserveDocuments(key, outcomeInvalidTime, 1)
	} else {
		result.AddInvalidSignatures(key, 1)
		a.metrics.ObserveDocuments(key, outcomeInvalidSignature, 1)
	}
	a.logger.Debug("document rejected", zap.String("id", id), zap.Error(err))
}

func (a *Action) malformed(id string, err error) {
	a.metrics.ObserveDocuments(a.Key(), outcomeMalformed, 1)
	a.logger.Debug("malformed document", zap.String("id", id), zap.Error(err))
}

func (a *Action) publish(ctx context.Context, op model.ChangeOperation, id string, version int64, source json.RawMessage) {
	if a.changes == nil {
		return
	}
	a.changes.Publish(ctx, model.ChangeEvent{
		Operation: op,
		Index:     a.cfg.Collection.Index,
		Type:      a.cfg.Collection.Type,
		ID:        id,
		Version:   version,
		Source:    source,
		Time:      a.now().Unix(),
	})
}
