package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
)

const (
	changesWriteWait = 10 * time.Second
	changesPongWait  = 60 * time.Second
	changesPingEvery = changesPongWait * 9 / 10
)

// SubscribeChanges streams change events of p to handle until ctx is done or the connection drops.
// The source filter is sent as the first text frame, e.g. "user/profile,user/settings".
func (c *Client) SubscribeChanges(ctx context.Context, p model.Peer, filter string, handle func(model.ChangeEvent)) (err error) {
	started := time.Now()
	defer func() {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		c.metrics.Observe("subscribe_changes", p.Currency, err, started)
	}()

	dialer := &websocket.Dialer{HandshakeTimeout: c.timeout}
	conn, resp, err := dialer.DialContext(ctx, p.WebsocketURL()+"/ws/_changes", nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial changes %s: %w", p, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	if err = conn.SetWriteDeadline(time.Now().Add(changesWriteWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err = conn.WriteMessage(websocket.TextMessage, []byte(filter)); err != nil {
		return fmt.Errorf("send changes filter: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(changesPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(changesPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(changesPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(changesWriteWait))
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(changesWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	logger := c.logger.With(zap.String("peer", p.String()))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read changes %s: %w", p, err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(changesPongWait))

		var event model.ChangeEvent
		if err := json.Unmarshal(data, &event); err != nil {
			logger.Debug("skip malformed change event", zap.Error(err))
			continue
		}
		if event.Index == "" || event.Type == "" || event.ID == "" {
			logger.Debug("skip incomplete change event", zap.String("payload", string(data)))
			continue
		}
		handle(event)
	}
}

// IsClosed reports whether err means the change feed ended normally.
func IsClosed(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
