package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/showheysas/tech0notta/internal/ingest"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultPingTimeout  = 10 * time.Second
	handshakeTimeout    = 15 * time.Second
)

// WebsocketDialer opens stream connections with gorilla/websocket and keeps
// them alive with pings. The signaling address is only logged; media frames
// arrive on the stream address.
type WebsocketDialer struct {
	dialer       *websocket.Dialer
	pingInterval time.Duration
	pingTimeout  time.Duration
}

func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: handshakeTimeout,
		},
		pingInterval: defaultPingInterval,
		pingTimeout:  defaultPingTimeout,
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context, streamURL, signalURL string) (ingest.Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}
	slog.Debug("stream websocket opened", "stream_url", streamURL, "signal_url", signalURL)
	return newWSConn(conn, d.pingInterval, d.pingTimeout), nil
}

type wsConn struct {
	conn     *websocket.Conn
	stop     chan struct{}
	once     sync.Once
	interval time.Duration
	timeout  time.Duration
}

func newWSConn(conn *websocket.Conn, interval, timeout time.Duration) *wsConn {
	c := &wsConn{
		conn:     conn,
		stop:     make(chan struct{}),
		interval: interval,
		timeout:  timeout,
	}
	deadline := interval + timeout
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})
	go c.keepAlive()
	return c
}

func (c *wsConn) keepAlive() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.timeout)); err != nil {
				slog.Debug("stream ping failed", "error", err)
				return
			}
		}
	}
}

func (c *wsConn) ReadMessage() (ingest.MessageKind, []byte, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return 0, nil, err
		}
		// Any frame proves liveness, not only pongs.
		_ = c.conn.SetReadDeadline(time.Now().Add(c.interval + c.timeout))
		switch mt {
		case websocket.TextMessage:
			return ingest.TextMessage, data, nil
		case websocket.BinaryMessage:
			return ingest.BinaryMessage, data, nil
		}
	}
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		err = c.conn.Close()
	})
	return err
}
