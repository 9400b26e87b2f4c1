package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// IDField sorts or filters on the document id.
const IDField = "_id"

// Range bounds a numeric field. Nil bounds are open.
type Range struct {
	Field string `json:"field"`
	Gte   *int64 `json:"gte,omitempty"`
	Lte   *int64 `json:"lte,omitempty"`
}

// Query is a conjunction of term and range filters. The zero value matches everything.
type Query struct {
	Terms  map[string]any `json:"terms,omitempty"`
	Ranges []Range        `json:"ranges,omitempty"`
}

// MatchAll returns the empty query.
func MatchAll() Query {
	return Query{}
}

// Term returns a copy of q with an equality filter added.
func (q Query) Term(field string, value any) Query {
	terms := make(map[string]any, len(q.Terms)+1)
	for k, v := range q.Terms {
		terms[k] = v
	}
	terms[field] = value
	q.Terms = terms
	return q
}

// Gte returns a copy of q with a lower bound on field.
func (q Query) Gte(field string, v int64) Query {
	q.Ranges = append(append([]Range(nil), q.Ranges...), Range{Field: field, Gte: &v})
	return q
}

// Between returns a copy of q with inclusive bounds on field.
func (q Query) Between(field string, from, to int64) Query {
	q.Ranges = append(append([]Range(nil), q.Ranges...), Range{Field: field, Gte: &from, Lte: &to})
	return q
}

// Sort orders results on a field.
type Sort struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// Asc sorts ascending on field.
func Asc(field string) Sort { return Sort{Field: field} }

// Desc sorts descending on field.
func Desc(field string) Sort { return Sort{Field: field, Desc: true} }

// Matches evaluates q against a decoded document.
func (q Query) Matches(id string, doc map[string]any) bool {
	for field, want := range q.Terms {
		got, ok := FieldValue(id, doc, field)
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	for _, r := range q.Ranges {
		v, ok := FieldValue(id, doc, r.Field)
		if !ok {
			return false
		}
		n, ok := AsInt64(v)
		if !ok {
			return false
		}
		if r.Gte != nil && n < *r.Gte {
			return false
		}
		if r.Lte != nil && n > *r.Lte {
			return false
		}
	}
	return true
}

// FieldValue resolves a dotted field path inside a decoded document.
func FieldValue(id string, doc map[string]any, field string) (any, bool) {
	if field == IDField {
		return id, true
	}
	var cur any = doc
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// AsInt64 converts decoded JSON numbers.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

// Decode unmarshals a document keeping numbers exact.
func Decode(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// SortHits orders hits in place according to sorts, falling back to id order.
func SortHits(hits []Hit, docs map[string]map[string]any, sorts []Sort) {
	sort.SliceStable(hits, func(i, j int) bool {
		for _, s := range sorts {
			c := compareField(hits[i].ID, docs[hits[i].ID], hits[j].ID, docs[hits[j].ID], s.Field)
			if c == 0 {
				continue
			}
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return hits[i].ID < hits[j].ID
	})
}

func compareField(idA string, a map[string]any, idB string, b map[string]any, field string) int {
	va, okA := FieldValue(idA, a, field)
	vb, okB := FieldValue(idB, b, field)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	na, numA := AsInt64(va)
	nb, numB := AsInt64(vb)
	if numA && numB {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(va), fmt.Sprint(vb))
}
