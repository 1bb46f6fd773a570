// Package feed streams landmark frames to a focus server over websocket
// and reads the server's updates back.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
	pingPeriod       = 30 * time.Second
)

// ErrClosed is returned when sending on a closed client.
var ErrClosed = errors.New("feed: connection closed")

// Message is one envelope received from the server.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Source yields frames. *detection.Replay satisfies it.
type Source interface {
	Next() (detection.Frame, error)
}

// Client is a websocket connection to a session's observation stream.
type Client struct {
	ws   *websocket.Conn
	wsMu sync.Mutex
	log  *slog.Logger

	// Called from the read loop for every envelope
	onMessage func(Message)

	closeOnce sync.Once
	done      chan struct{}
}

// ObservationURL builds the websocket URL for session id on a server at
// base (http or ws scheme).
func ObservationURL(base, id string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("feed: parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("feed: unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws/sessions/" + url.PathEscape(id) + "/observations"
	return u.String(), nil
}

// Dial connects to the observation stream at wsURL. onMessage may be nil.
func Dial(ctx context.Context, wsURL string, onMessage func(Message), logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	ws, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: dial %s: %w", wsURL, err)
	}

	c := &Client{
		ws:        ws,
		log:       logger.With("component", "feed"),
		onMessage: onMessage,
		done:      make(chan struct{}),
	}
	go c.readLoop()
	go c.keepAlive()
	return c, nil
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Send writes one frame.
func (c *Client) Send(f detection.Frame) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(f)
}

// Stream sends every frame of src. With speed > 0 frames are paced by
// their recorded timestamps divided by speed; otherwise they are sent as
// fast as possible. It returns the number of frames sent.
func (c *Client) Stream(ctx context.Context, src Source, speed float64) (int, error) {
	var prev time.Time
	sent := 0
	for {
		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			return sent, nil
		}
		if err != nil {
			return sent, err
		}

		if speed > 0 && !prev.IsZero() && f.At.After(prev) {
			wait := time.Duration(float64(f.At.Sub(prev)) / speed)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return sent, ctx.Err()
			case <-c.done:
				timer.Stop()
				return sent, ErrClosed
			case <-timer.C:
			}
		}
		if !f.At.IsZero() {
			prev = f.At
		}

		if err := c.Send(f); err != nil {
			return sent, err
		}
		sent++
	}
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.wsMu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.wsMu.Unlock()
		err = c.ws.Close()
	})
	<-c.done
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("feed read ended", "error", err)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("bad message from server", "error", err)
			continue
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

func (c *Client) keepAlive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.wsMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.wsMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
