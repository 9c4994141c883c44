// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Default transport configuration values
const (
	// DefaultPreambleLength is the framing preamble skipped before each payload
	DefaultPreambleLength = 7

	// DarwinPreambleLength is the preamble observed on macOS RFCOMM sockets
	DarwinPreambleLength = 30

	// DefaultMaxMessageSize bounds a single payload read
	DefaultMaxMessageSize = 1024

	// requestHeaderSize is the 2-byte length plus marker written before each request
	requestHeaderSize = 3

	// requestMarker follows the length in every outbound frame
	requestMarker = 0x80
)

// ErrMessageTooLarge is returned by Send, before any byte is written, when
// a request exceeds the configured maximum message size
var ErrMessageTooLarge = errors.New("message too large")

// Transport is a duplex channel carrying one framed message per call
//
// The engine issues at most one Send followed by Receive calls until an
// answer arrives. Context deadlines are applied to the underlying
// connection, so a deadline is the way to bound a blocking Receive.
type Transport interface {
	// Send writes one encoded request
	Send(ctx context.Context, msg []byte) error

	// Receive blocks until one framed message arrives and returns its payload
	Receive(ctx context.Context) ([]byte, error)

	// Close releases the connection
	Close() error
}

// transportConfig holds the options shared by all transports
type transportConfig struct {
	preambleLength int
	maxMessageSize int
	logger         Logger
}

// TransportOption configures a transport
type TransportOption func(*transportConfig)

// PreambleLength sets the number of framing bytes discarded before each
// inbound payload (default: 7)
func PreambleLength(n int) TransportOption {
	return func(c *transportConfig) {
		c.preambleLength = n
	}
}

// MaxMessageSize sets the largest payload read in one Receive (default: 1024)
func MaxMessageSize(n int) TransportOption {
	return func(c *transportConfig) {
		c.maxMessageSize = n
	}
}

// TransportLogger configures a logger for frame-level debug output
func TransportLogger(logger Logger) TransportOption {
	return func(c *transportConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// newTransportConfig applies options over the defaults and validates the result
func newTransportConfig(opts []TransportOption) (transportConfig, error) {
	cfg := transportConfig{
		preambleLength: DefaultPreambleLength,
		maxMessageSize: DefaultMaxMessageSize,
		logger:         &NoOpLogger{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.preambleLength < 0 {
		return cfg, fmt.Errorf("preamble length must be non-negative, got: %d", cfg.preambleLength)
	}
	if cfg.maxMessageSize <= 0 {
		return cfg, fmt.Errorf("max message size must be positive, got: %d", cfg.maxMessageSize)
	}
	if cfg.maxMessageSize > 0xFFFF-requestHeaderSize {
		return cfg, fmt.Errorf("max message size must not exceed %d, got: %d", 0xFFFF-requestHeaderSize, cfg.maxMessageSize)
	}
	return cfg, nil
}

// ConnTransport carries device messages over a stream connection such as
// an RFCOMM or TCP socket.
//
// Outbound frames are a 2-byte big-endian total length, the marker byte
// 0x80 and the payload. Inbound, the configured preamble is discarded and
// the payload is taken from a single read.
type ConnTransport struct {
	conn net.Conn
	cfg  transportConfig

	// writeMu keeps frames from interleaving
	writeMu sync.Mutex
	buf     []byte
}

// NewConnTransport wraps an established connection
//
// Example:
//
//	conn, _ := net.Dial("tcp", "192.168.1.50:5000")
//	t, err := zik.NewConnTransport(conn, zik.PreambleLength(zik.DarwinPreambleLength))
func NewConnTransport(conn net.Conn, opts ...TransportOption) (*ConnTransport, error) {
	if conn == nil {
		return nil, fmt.Errorf("connection cannot be nil")
	}
	cfg, err := newTransportConfig(opts)
	if err != nil {
		return nil, err
	}
	return &ConnTransport{
		conn: conn,
		cfg:  cfg,
		buf:  make([]byte, cfg.maxMessageSize),
	}, nil
}

// Dial connects to address on the named network and wraps the connection
func Dial(ctx context.Context, network, address string, opts ...TransportOption) (*ConnTransport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	t, err := NewConnTransport(conn, opts...)
	if err != nil {
		_ = conn.Close() //nolint:errcheck // Configuration error takes precedence
		return nil, err
	}
	return t, nil
}

// Send writes one request frame
func (t *ConnTransport) Send(ctx context.Context, msg []byte) error {
	if len(msg) > t.cfg.maxMessageSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum of %d", ErrMessageTooLarge, len(msg), t.cfg.maxMessageSize)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.conn.SetWriteDeadline(deadlineOf(ctx)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	frame := make([]byte, requestHeaderSize+len(msg))
	binary.BigEndian.PutUint16(frame[:2], uint16(len(frame))) //nolint:gosec // Bounded by maxMessageSize
	frame[2] = requestMarker
	copy(frame[requestHeaderSize:], msg)

	if _, err := t.conn.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	t.cfg.logger.Debug(ctx, "frame sent",
		"bytes", len(frame))
	return nil
}

// Receive discards the preamble and returns the payload of one read
func (t *ConnTransport) Receive(ctx context.Context) ([]byte, error) {
	if err := t.conn.SetReadDeadline(deadlineOf(ctx)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	if t.cfg.preambleLength > 0 {
		preamble := make([]byte, t.cfg.preambleLength)
		if _, err := io.ReadFull(t.conn, preamble); err != nil {
			return nil, fmt.Errorf("read preamble: %w", err)
		}
	}

	n, err := t.conn.Read(t.buf)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	payload := make([]byte, n)
	copy(payload, t.buf[:n])

	t.cfg.logger.Debug(ctx, "frame received",
		"bytes", n,
		"preamble", t.cfg.preambleLength)
	return payload, nil
}

// Close closes the underlying connection
func (t *ConnTransport) Close() error {
	return t.conn.Close()
}

// deadlineOf returns the context deadline, or the zero time for none
func deadlineOf(ctx context.Context) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Time{}
}
