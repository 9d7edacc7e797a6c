// Package netlink is the device's WebSocket side channel: a client that
// answers every text message from the server, and the matching test server.
package netlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/parrot/pkg/errorsx"
	"github.com/harunnryd/parrot/pkg/resilience"
)

const (
	DefaultMaxReplies = 10
	DefaultReplyDelay = time.Second
)

// ErrNoURL is returned by Run when the client has no URL.
var ErrNoURL = errors.New("netlink: websocket url is empty")

// EchoClient connects to URL and, for each text message received, waits
// ReplyDelay and answers "Hello Websocket Server {i}" with i counting from 0.
// It closes the connection once i passes MaxReplies.
type EchoClient struct {
	URL        string
	MaxReplies int
	ReplyDelay time.Duration
	Retry      resilience.RetryPolicy
	Dialer     *websocket.Dialer
	Logger     *slog.Logger
}

// Stats reports what one Run did.
type Stats struct {
	Received int
	Replied  int
	// Closed is true when the client ended the conversation itself.
	Closed bool
}

// Run dials, then answers messages until the reply limit, the server closing
// the connection, or ctx. A server-side close is not an error.
func (c *EchoClient) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	if c.URL == "" {
		return stats, ErrNoURL
	}
	log := c.logger().With("url", c.URL)

	conn, err := c.dial(ctx, log)
	if err != nil {
		return stats, errorsx.Wrap(fmt.Errorf("netlink: dial: %w", err), errorsx.ReasonTransportDial)
	}
	defer conn.Close()
	log.Info("ws_connected")

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	maxReplies := c.MaxReplies
	if maxReplies <= 0 {
		maxReplies = DefaultMaxReplies
	}
	delay := c.ReplyDelay
	if delay <= 0 {
		delay = DefaultReplyDelay
	}

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("ws_closed_by_server", "received", stats.Received)
				return stats, nil
			}
			log.Error("ws_read_failed", "error", err)
			return stats, fmt.Errorf("netlink: read: %w", err)
		}
		if kind != websocket.TextMessage {
			log.Warn("ws_non_text_message", "type", kind, "bytes", len(msg))
			continue
		}
		stats.Received++
		log.Info("ws_message_received", "text", string(msg))

		if err := sleepCtx(ctx, delay); err != nil {
			return stats, err
		}
		reply := fmt.Sprintf("Hello Websocket Server %d", stats.Replied)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			return stats, errorsx.Wrap(fmt.Errorf("netlink: send: %w", err), errorsx.ReasonTransportSend)
		}
		stats.Replied++
		if stats.Replied > maxReplies {
			log.Info("ws_closing", "replies", stats.Replied)
			stats.Closed = true
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
			_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
			return stats, nil
		}
	}
}

func (c *EchoClient) dial(ctx context.Context, log *slog.Logger) (*websocket.Conn, error) {
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	retry := c.Retry
	if retry.Backoff <= 0 {
		retry = resilience.NewRetryPolicy(retry.MaxRetries, 0)
	}
	var conn *websocket.Conn
	err := retry.Do(ctx, func(attempt int) error {
		var err error
		conn, _, err = dialer.DialContext(ctx, c.URL, nil)
		if err != nil {
			log.Warn("ws_dial_failed", "attempt", attempt, "error", err)
		}
		return err
	})
	return conn, err
}

func (c *EchoClient) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
