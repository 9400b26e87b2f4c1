package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

type searchQuery struct {
	where string
	args  []any
	order string
}

func buildSearch(c store.Collection, q store.Query, sorts []store.Sort) (searchQuery, error) {
	var (
		clauses = []string{"idx = ?", "doc_type = ?", "deleted = 0"}
		args    = []any{c.Index, c.Type}
	)

	fields := make([]string, 0, len(q.Terms))
	for f := range q.Terms {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if f == store.IDField {
			clauses = append(clauses, "id = ?")
			args = append(args, fmt.Sprint(q.Terms[f]))
			continue
		}
		raw, err := json.Marshal(q.Terms[f])
		if err != nil {
			return searchQuery{}, fmt.Errorf("encode term %s: %w", f, err)
		}
		expr, path := jsonPath("JSONExtractRaw", f)
		clauses = append(clauses, expr+" = ?")
		args = append(append(args, path...), string(raw))
	}
	for _, rg := range q.Ranges {
		expr, path := jsonPath("JSONExtractInt", rg.Field)
		if rg.Gte != nil {
			clauses = append(clauses, expr+" >= ?")
			args = append(append(args, path...), *rg.Gte)
		}
		if rg.Lte != nil {
			clauses = append(clauses, expr+" <= ?")
			args = append(append(args, path...), *rg.Lte)
		}
	}

	order := make([]string, 0, len(sorts)*2+1)
	for _, s := range sorts {
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		if s.Field == store.IDField {
			order = append(order, "id "+dir)
			continue
		}
		if !validField(s.Field) {
			return searchQuery{}, fmt.Errorf("invalid sort field %q", s.Field)
		}
		keys := quotedKeys(s.Field)
		order = append(order,
			fmt.Sprintf("JSONExtractInt(source, %s) %s", keys, dir),
			fmt.Sprintf("JSONExtractString(source, %s) %s", keys, dir),
		)
	}
	order = append(order, "id ASC")

	return searchQuery{
		where: strings.Join(clauses, " AND "),
		args:  args,
		order: strings.Join(order, ", "),
	}, nil
}

// Search runs a paged query over live documents.
func (r *Repository) Search(ctx context.Context, c store.Collection, q store.Query, from, size int, sorts ...store.Sort) (page store.Page, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("search", c.Index, err, start)
	}()

	sq, err := buildSearch(c, q, sorts)
	if err != nil {
		return store.Page{}, err
	}

	total, err := r.countQuery(ctx, "SELECT count() FROM documents FINAL WHERE "+sq.where, sq.args...)
	if err != nil {
		return store.Page{}, fmt.Errorf("count %s: %w", c, err)
	}

	query := "SELECT id, source FROM documents FINAL WHERE " + sq.where + " ORDER BY " + sq.order
	args := sq.args
	if size > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(append([]any(nil), args...), size, from)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return store.Page{}, fmt.Errorf("query %s: %w", c, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	page.Total = int64(total)
	for rows.Next() {
		var id, source string
		if err = rows.Scan(&id, &source); err != nil {
			return store.Page{}, fmt.Errorf("scan %s: %w", c, err)
		}
		page.Hits = append(page.Hits, store.Hit{Collection: c, ID: id, Source: json.RawMessage(source)})
	}
	if err = rows.Err(); err != nil {
		return store.Page{}, fmt.Errorf("iterate %s: %w", c, err)
	}
	return page, nil
}

// jsonPath expands a dotted field into a JSONExtract call with one placeholder per key.
func jsonPath(fn, field string) (string, []any) {
	parts := strings.Split(field, ".")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(parts)), ", ")
	args := make([]any, len(parts))
	for i, p := range parts {
		args[i] = p
	}
	return fmt.Sprintf("%s(source, %s)", fn, placeholders), args
}

func quotedKeys(field string) string {
	parts := strings.Split(field, ".")
	for i, p := range parts {
		parts[i] = "'" + p + "'"
	}
	return strings.Join(parts, ", ")
}

func validField(field string) bool {
	if field == "" {
		return false
	}
	for _, r := range field {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
