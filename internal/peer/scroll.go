package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

type scrollResponse struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Total json.RawMessage `json:"total"`
		Hits  []struct {
			Index  string          `json:"_index"`
			Type   string          `json:"_type"`
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ScrollOpen opens a cursor over a remote collection and returns its first page.
func (c *Client) ScrollOpen(ctx context.Context, p model.Peer, coll store.Collection, q store.Query, size int, ttl time.Duration, sorts ...store.Sort) (store.Page, error) {
	body, err := json.Marshal(map[string]any{
		"query": searchQuery(q),
		"size":  size,
		"sort":  searchSort(sorts),
	})
	if err != nil {
		return store.Page{}, fmt.Errorf("encode scroll query: %w", err)
	}

	target := fmt.Sprintf("%s/%s/%s/_search?scroll=%s", p.BaseURL(), url.PathEscape(coll.Index), url.PathEscape(coll.Type), scrollTTL(ttl))
	var resp scrollResponse
	err = c.retry(ctx, "scroll_open", p, func() error {
		resp = scrollResponse{}
		return c.postJSON(ctx, target, body, &resp)
	})
	if err != nil {
		return store.Page{}, err
	}
	return resp.page(coll)
}

// ScrollNext fetches the next page of a remote cursor. An expired cursor yields an error
// matching both ErrNotFound and store.ErrScrollNotFound.
func (c *Client) ScrollNext(ctx context.Context, p model.Peer, coll store.Collection, scrollID string, ttl time.Duration) (store.Page, error) {
	body, err := json.Marshal(map[string]string{
		"scroll":    scrollTTL(ttl),
		"scroll_id": scrollID,
	})
	if err != nil {
		return store.Page{}, fmt.Errorf("encode scroll request: %w", err)
	}

	var resp scrollResponse
	err = c.retry(ctx, "scroll_next", p, func() error {
		resp = scrollResponse{}
		return c.postJSON(ctx, p.BaseURL()+"/_search/scroll", body, &resp)
	})
	if errors.Is(err, ErrNotFound) {
		return store.Page{}, fmt.Errorf("%w: %w", store.ErrScrollNotFound, err)
	}
	if err != nil {
		return store.Page{}, err
	}
	return resp.page(coll)
}

func (r scrollResponse) page(coll store.Collection) (store.Page, error) {
	total, err := parseTotal(r.Hits.Total)
	if err != nil {
		return store.Page{}, err
	}
	page := store.Page{ScrollID: r.ScrollID, Total: total, Hits: make([]store.Hit, 0, len(r.Hits.Hits))}
	for _, h := range r.Hits.Hits {
		hc := coll
		if h.Index != "" && h.Type != "" {
			hc = store.Collection{Index: h.Index, Type: h.Type}
		}
		page.Hits = append(page.Hits, store.Hit{Collection: hc, ID: h.ID, Source: h.Source})
	}
	return page, nil
}

// parseTotal accepts both the plain number and the {"value": n} object forms.
func parseTotal(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var obj struct {
		Value int64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, fmt.Errorf("decode hits total: %w", err)
	}
	return obj.Value, nil
}

func searchQuery(q store.Query) map[string]any {
	filters := make([]any, 0, len(q.Terms)+len(q.Ranges))
	for field, value := range q.Terms {
		filters = append(filters, map[string]any{"term": map[string]any{field: value}})
	}
	for _, r := range q.Ranges {
		bounds := map[string]int64{}
		if r.Gte != nil {
			bounds["gte"] = *r.Gte
		}
		if r.Lte != nil {
			bounds["lte"] = *r.Lte
		}
		filters = append(filters, map[string]any{"range": map[string]any{r.Field: bounds}})
	}
	if len(filters) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{"bool": map[string]any{"filter": filters}}
}

func searchSort(sorts []store.Sort) []map[string]string {
	out := make([]map[string]string, 0, len(sorts))
	for _, s := range sorts {
		dir := "asc"
		if s.Desc {
			dir = "desc"
		}
		out = append(out, map[string]string{s.Field: dir})
	}
	return out
}

func scrollTTL(ttl time.Duration) string {
	secs := int64(ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%ds", secs)
}
