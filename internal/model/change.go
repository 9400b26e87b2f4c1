package model

import "encoding/json"

// ChangeOperation is the kind of write a change event reports.
type ChangeOperation string

var (
	ChangeCreate ChangeOperation = "CREATE"
	ChangeIndex  ChangeOperation = "INDEX"
	ChangeDelete ChangeOperation = "DELETE"
)

// ChangeEvent describes a single document write, locally or on a peer's change feed.
type ChangeEvent struct {
	Operation ChangeOperation `json:"_operation"`
	Index     string          `json:"_index"`
	Type      string          `json:"_type"`
	ID        string          `json:"_id"`
	Version   int64           `json:"_version,omitempty"`
	Source    json.RawMessage `json:"_source,omitempty"`
	Time      int64           `json:"_time,omitempty"`
}

// Collection returns the "index/type" key of the event.
func (e ChangeEvent) Collection() string {
	return CollectionKey(e.Index, e.Type)
}

// HasSource reports whether the event carries the document body.
func (e ChangeEvent) HasSource() bool {
	return len(e.Source) > 0 && string(e.Source) != "null"
}

// DocumentReference points at a document whose derived artifacts must follow its lifecycle.
type DocumentReference struct {
	Index  string `json:"index"`
	Type   string `json:"type"`
	ID     string `json:"id"`
	Hash   string `json:"hash,omitempty"`
	Anchor string `json:"anchor,omitempty"`
}
