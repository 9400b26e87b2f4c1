package synchro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

// ExecutionType is the document type of synchronization bookmarks.
const ExecutionType = "synchro"

// ExecutionCollection is where the bookmarks of a currency are stored.
func ExecutionCollection(currency string) store.Collection {
	return store.Collection{Index: currency, Type: ExecutionType}
}

// Executions persists one SynchroExecution per peer run.
type Executions struct {
	store store.DocumentStore
}

func NewExecutions(s store.DocumentStore) *Executions {
	return &Executions{store: s}
}

// Last returns the latest execution recorded for the peer and API.
func (e *Executions) Last(ctx context.Context, currency, peerID, api string) (model.SynchroExecution, bool, error) {
	q := store.MatchAll().Term("peer", peerID).Term("api", api)
	page, err := e.store.Search(ctx, ExecutionCollection(currency), q, 0, 1, store.Desc("time"))
	switch {
	case errors.Is(err, store.ErrIndexNotFound):
		return model.SynchroExecution{}, false, nil
	case err != nil:
		return model.SynchroExecution{}, false, fmt.Errorf("search executions: %w", err)
	case len(page.Hits) == 0:
		return model.SynchroExecution{}, false, nil
	}
	var exec model.SynchroExecution
	if err := json.Unmarshal(page.Hits[0].Source, &exec); err != nil {
		return model.SynchroExecution{}, false, fmt.Errorf("decode execution %s: %w", page.Hits[0].ID, err)
	}
	return exec, true, nil
}

// Save stores exec, assigning an id when empty.
func (e *Executions) Save(ctx context.Context, exec model.SynchroExecution) (model.SynchroExecution, error) {
	if exec.ID == "" {
		exec.ID = uuid.NewString()
	}
	raw, err := json.Marshal(exec)
	if err != nil {
		return exec, fmt.Errorf("encode execution: %w", err)
	}
	if err := e.store.Update(ctx, ExecutionCollection(exec.Currency), exec.ID, raw, true); err != nil {
		return exec, fmt.Errorf("save execution %s: %w", exec.ID, err)
	}
	return exec, nil
}
