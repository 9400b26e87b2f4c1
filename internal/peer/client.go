// Package peer implements the HTTP and WebSocket protocol spoken by remote ledger nodes.
package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
)

var (
	// ErrNotFound is returned when the peer answers 404.
	ErrNotFound = errors.New("not found on peer")
	// ErrUnavailable is returned when the peer keeps failing after retries.
	ErrUnavailable = errors.New("peer unavailable")
)

const maxBodySize = 64 << 20

// Config tunes timeouts, retries and throttling.
type Config struct {
	Timeout           time.Duration
	RetryCount        int
	RetryWait         time.Duration
	RequestsPerSecond int
}

// Client talks to remote peers. One client is shared by every peer.
type Client struct {
	http       *http.Client
	rl         ratelimit.Limiter
	metrics    Metrics
	logger     *zap.Logger
	retryCount int
	retryWait  time.Duration
	timeout    time.Duration
}

// NewClient constructs a peer client.
func NewClient(logger *zap.Logger, metrics Metrics, cfg Config) *Client {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		rl:         ratelimit.New(cfg.RequestsPerSecond),
		metrics:    metrics,
		logger:     logger.Named("peer_client"),
		retryCount: cfg.RetryCount,
		retryWait:  cfg.RetryWait,
		timeout:    cfg.Timeout,
	}
}

// CurrentBlock returns the head block of the peer.
func (c *Client) CurrentBlock(ctx context.Context, p model.Peer) (block model.Block, err error) {
	err = c.retry(ctx, "current_block", p, func() error {
		return c.getJSON(ctx, p.BaseURL()+"/blockchain/current", &block)
	})
	return block, err
}

// Block returns the block at number.
func (c *Client) Block(ctx context.Context, p model.Peer, number uint64) (block model.Block, err error) {
	err = c.retry(ctx, "block", p, func() error {
		return c.getJSON(ctx, fmt.Sprintf("%s/blockchain/block/%d", p.BaseURL(), number), &block)
	})
	return block, err
}

// Blocks returns up to count blocks starting at from.
func (c *Client) Blocks(ctx context.Context, p model.Peer, count int, from uint64) (blocks []model.Block, err error) {
	err = c.retry(ctx, "blocks", p, func() error {
		blocks = nil
		return c.getJSON(ctx, fmt.Sprintf("%s/blockchain/blocks/%d/%d", p.BaseURL(), count, from), &blocks)
	})
	return blocks, err
}

// Peering returns the signed peering document of the peer.
func (c *Client) Peering(ctx context.Context, p model.Peer) (doc model.PeeringDocument, err error) {
	err = c.retry(ctx, "peering", p, func() error {
		return c.getJSON(ctx, p.BaseURL()+"/network/peering", &doc)
	})
	return doc, err
}

// PublishPeering posts a peering document to the peer.
func (c *Client) PublishPeering(ctx context.Context, p model.Peer, doc model.PeeringDocument) error {
	body, err := json.Marshal(struct {
		Peer string `json:"peer"`
		model.PeeringDocument
	}{Peer: doc.Raw() + doc.Signature + "\n", PeeringDocument: doc})
	if err != nil {
		return fmt.Errorf("encode peering document: %w", err)
	}
	return c.retry(ctx, "publish_peering", p, func() error {
		return c.postJSON(ctx, p.BaseURL()+"/network/peering/peers", body, nil)
	})
}

type peersResponse struct {
	Peers []struct {
		Currency  string   `json:"currency"`
		Pubkey    string   `json:"pubkey"`
		Block     string   `json:"block"`
		Status    string   `json:"status"`
		Endpoints []string `json:"endpoints"`
	} `json:"peers"`
}

// Peers lists the peers known by p, one entry per parsable endpoint.
func (c *Client) Peers(ctx context.Context, p model.Peer) ([]model.Peer, error) {
	var resp peersResponse
	err := c.retry(ctx, "peers", p, func() error {
		return c.getJSON(ctx, p.BaseURL()+"/network/peers", &resp)
	})
	if err != nil {
		return nil, err
	}

	var out []model.Peer
	for _, rp := range resp.Peers {
		currency := rp.Currency
		if currency == "" {
			currency = p.Currency
		}
		for _, ep := range rp.Endpoints {
			parsed, perr := model.ParseEndpoint(currency, rp.Pubkey, ep)
			if perr != nil {
				c.logger.Debug("skip endpoint", zap.String("endpoint", ep), zap.Error(perr))
				continue
			}
			parsed.Stats.Status = model.PeerDown
			if rp.Status == string(model.PeerUp) {
				parsed.Stats.Status = model.PeerUp
			}
			if number, hash, ok := splitStamp(rp.Block); ok {
				parsed.Stats.BlockNumber = number
				parsed.Stats.BlockHash = hash
			}
			out = append(out, parsed)
		}
	}
	return out, nil
}

func (c *Client) retry(ctx context.Context, operation string, p model.Peer, fn func() error) (err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe(operation, p.Currency, err, started)
	}()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryWait), uint64(max(c.retryCount, 0))),
		ctx,
	)
	err = backoff.RetryNotify(fn, policy, func(err error, wait time.Duration) {
		c.metrics.ObserveRetry(operation, p.Currency)
		c.logger.Debug("retry peer request",
			zap.String("operation", operation),
			zap.String("peer", p.String()),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err == nil || errors.Is(err, ErrNotFound) || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%s %s: %w: %w", operation, p, ErrUnavailable, err)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	return c.send(req, out)
}

func (c *Client) postJSON(ctx context.Context, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	c.rl.Take()

	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return backoff.Permanent(req.Context().Err())
		}
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return backoff.Permanent(fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrNotFound))
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return backoff.Permanent(fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode %s: %w", req.URL.Path, err))
	}
	return nil
}

func splitStamp(stamp string) (uint64, string, bool) {
	num, hash, ok := strings.Cut(stamp, "-")
	if !ok {
		return 0, "", false
	}
	var n uint64
	if _, err := fmt.Sscan(num, &n); err != nil {
		return 0, "", false
	}
	return n, hash, true
}
