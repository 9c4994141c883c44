// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WSTransport carries device messages over a WebSocket, as exposed by
// Bluetooth bridges. Each binary WebSocket message is one frame; the
// configured preamble is stripped from the front of every inbound message.
type WSTransport struct {
	conn *websocket.Conn
	cfg  transportConfig

	// gorilla/websocket allows one concurrent writer
	writeMu sync.Mutex
}

// NewWSTransport wraps an established WebSocket connection
func NewWSTransport(conn *websocket.Conn, opts ...TransportOption) (*WSTransport, error) {
	if conn == nil {
		return nil, fmt.Errorf("connection cannot be nil")
	}
	cfg, err := newTransportConfig(opts)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(int64(cfg.preambleLength + cfg.maxMessageSize))
	return &WSTransport{conn: conn, cfg: cfg}, nil
}

// DialWebSocket connects to a bridge at url (ws:// or wss://)
//
// Example:
//
//	t, err := zik.DialWebSocket(ctx, "ws://bridge.local:8080/zik")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	prober, err := zik.NewProber(t)
func DialWebSocket(ctx context.Context, url string, opts ...TransportOption) (*WSTransport, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close() //nolint:errcheck // Handshake body is not used
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	t, err := NewWSTransport(conn, opts...)
	if err != nil {
		_ = conn.Close() //nolint:errcheck // Configuration error takes precedence
		return nil, err
	}
	return t, nil
}

// Send writes msg as one binary message
func (t *WSTransport) Send(ctx context.Context, msg []byte) error {
	if len(msg) > t.cfg.maxMessageSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum of %d", ErrMessageTooLarge, len(msg), t.cfg.maxMessageSize)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.conn.SetWriteDeadline(deadlineOf(ctx)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	t.cfg.logger.Debug(ctx, "websocket message sent",
		"bytes", len(msg))
	return nil
}

// Receive returns the payload of the next data message
func (t *WSTransport) Receive(ctx context.Context) ([]byte, error) {
	if err := t.conn.SetReadDeadline(deadlineOf(ctx)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	if len(data) < t.cfg.preambleLength {
		return nil, protocolError("receive",
			fmt.Sprintf("message shorter than preamble (%d < %d bytes)", len(data), t.cfg.preambleLength), "")
	}

	t.cfg.logger.Debug(ctx, "websocket message received",
		"bytes", len(data),
		"preamble", t.cfg.preambleLength)
	return data[t.cfg.preambleLength:], nil
}

// Close sends a close frame and closes the connection
func (t *WSTransport) Close() error {
	t.writeMu.Lock()
	_ = t.conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck // Peer may already be gone
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()
	return t.conn.Close()
}
