// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package mirror publishes headset resource values to a gNMI target so
// network tooling can collect device state alongside router telemetry.
//
// Each cached resource becomes one gNMI Update at Prefix + resource path
// carrying the raw JSON answer:
//
//	m, err := mirror.NewMirror("collector.local:57400",
//	    mirror.Username("admin"),
//	    mirror.Password("secret"),
//	    mirror.Prefix("/headsets/zik-livingroom"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	if err := m.PublishCache(ctx, mgr.Cache()); err != nil {
//	    log.Printf("mirror: %v", err)
//	}
package mirror

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/openconfig/gnmic/pkg/api"
	target "github.com/openconfig/gnmic/pkg/api/target"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	zik "github.com/netascode/go-zik"
)

// Default mirror configuration values
const (
	DefaultPort               = 57400
	DefaultMaxRetries         = 3
	DefaultBackoffMinDelay    = 1 * time.Second
	DefaultBackoffMaxDelay    = 60 * time.Second
	DefaultBackoffDelayFactor = 2
	DefaultConnectTimeout     = 30 * time.Second
	DefaultOperationTimeout   = 15 * time.Second
	DefaultUseTLS             = true
	DefaultVerifyCertificate  = true
	DefaultEncoding           = EncodingJSONIETF
)

// TransientCodes lists the gRPC status codes that trigger an automatic retry
//
// codes.Internal is excluded: it is a catch-all that mostly signals
// permanent failures.
var TransientCodes = []codes.Code{
	codes.Unavailable,
	codes.ResourceExhausted,
	codes.DeadlineExceeded,
	codes.Aborted,
}

// Mirror publishes resource values to a gNMI target
type Mirror struct {
	// gnmic target for gNMI transport (lazy connection)
	target *target.Target

	// connected tracks if connection has been established (lazy)
	connected bool

	// mu serializes publishing and connection management
	mu sync.Mutex

	// Connection parameters
	Target   string
	Port     int
	username string
	password string

	// TLS configuration
	tlsCert string
	tlsKey  string
	tlsCA   string

	// TLS options
	UseTLS            bool
	VerifyCertificate bool

	// Timeout configuration
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration

	// Retry configuration
	MaxRetries         int
	BackoffMinDelay    time.Duration
	BackoffMaxDelay    time.Duration
	BackoffDelayFactor float64

	// Publishing configuration
	Prefix   string
	Encoding string

	logger zik.Logger
}

// NewMirror creates a mirror for the gNMI target address
//
// Like the engine, the mirror validates its configuration up front but
// connects lazily on the first Publish or Ping.
func NewMirror(address string, opts ...func(*Mirror)) (*Mirror, error) {
	m := &Mirror{
		Target:             address,
		Port:               DefaultPort,
		UseTLS:             DefaultUseTLS,
		VerifyCertificate:  DefaultVerifyCertificate,
		ConnectTimeout:     DefaultConnectTimeout,
		OperationTimeout:   DefaultOperationTimeout,
		MaxRetries:         DefaultMaxRetries,
		BackoffMinDelay:    DefaultBackoffMinDelay,
		BackoffMaxDelay:    DefaultBackoffMaxDelay,
		BackoffDelayFactor: DefaultBackoffDelayFactor,
		Encoding:           DefaultEncoding,
		logger:             &zik.NoOpLogger{},
	}

	for _, opt := range opts {
		opt(m)
	}

	if err := m.validateConfig(); err != nil {
		return nil, err
	}

	if err := m.createTarget(); err != nil {
		return nil, err
	}

	m.logger.Info(context.Background(), "gNMI mirror created",
		"target", m.Target,
		"port", m.Port,
		"prefix", m.Prefix)

	return m, nil
}

// Close closes the gNMI session. Subsequent calls are no-ops.
func (m *Mirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.target == nil {
		return nil
	}

	t := m.target
	m.target = nil
	m.connected = false

	if err := t.Close(); err != nil {
		return err
	}

	m.logger.Info(context.Background(), "gNMI mirror closed",
		"target", m.Target)
	return nil
}

// Ping verifies connectivity by performing a Capabilities RPC
func (m *Mirror) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureConnected(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.OperationTimeout)
	defer cancel()

	resp, err := m.target.Capabilities(ctx)
	if err != nil {
		return fmt.Errorf("capabilities request failed: %w", err)
	}

	m.logger.Debug(ctx, "gNMI Capabilities response",
		"version", resp.GNMIVersion,
		"encodings", len(resp.SupportedEncodings))
	return nil
}

// Backoff calculates the backoff delay for retry attempt using exponential
// backoff with jitter
//
// delay = min(minDelay * factor^attempt, maxDelay) + jitter, where jitter is
// a random value in [0, delay*0.1).
func (m *Mirror) Backoff(attempt int) time.Duration {
	delay := float64(m.BackoffMinDelay) * math.Pow(m.BackoffDelayFactor, float64(attempt))

	if math.IsInf(delay, 1) || delay > float64(m.BackoffMaxDelay) {
		delay = float64(m.BackoffMaxDelay)
	}

	jitterMax := int64(delay * 0.1)
	if jitterMax > 0 {
		var jitterBytes [8]byte
		if _, err := rand.Read(jitterBytes[:]); err == nil {
			//nolint:gosec // G115: masked to a non-negative int64
			jitter := int64(binary.BigEndian.Uint64(jitterBytes[:]) & 0x7FFFFFFFFFFFFFFF)
			delay += float64(jitter % jitterMax)
		} else {
			timestamp := time.Now().UnixNano()
			delay += float64((timestamp%jitterMax + jitterMax) % jitterMax)
		}
	}

	return time.Duration(delay)
}

// isTransient reports whether err carries one of TransientCodes
func isTransient(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	for _, c := range TransientCodes {
		if st.Code() == c {
			return true
		}
	}
	return false
}

// isTransportError reports whether err means the gRPC channel is broken
func isTransportError(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unavailable || st.Code() == codes.DeadlineExceeded
}

// validateConfig validates mirror configuration before connection
func (m *Mirror) validateConfig() error {
	if strings.TrimSpace(m.Target) == "" {
		return fmt.Errorf("target address cannot be empty")
	}
	if m.Port < 1 || m.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", m.Port)
	}
	if m.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got: %v", m.ConnectTimeout)
	}
	if m.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive, got: %v", m.OperationTimeout)
	}
	if m.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got: %d", m.MaxRetries)
	}
	if m.BackoffMinDelay <= 0 {
		return fmt.Errorf("backoff min delay must be positive, got: %v", m.BackoffMinDelay)
	}
	if m.BackoffMaxDelay <= m.BackoffMinDelay {
		return fmt.Errorf("backoff max delay (%v) must be greater than min delay (%v)",
			m.BackoffMaxDelay, m.BackoffMinDelay)
	}
	if m.BackoffDelayFactor < 1.0 {
		return fmt.Errorf("backoff delay factor must be >= 1.0, got: %f", m.BackoffDelayFactor)
	}
	if err := ValidateEncoding(m.Encoding); err != nil {
		return err
	}
	if m.Prefix != "" && (m.Prefix[0] != '/' || strings.HasSuffix(m.Prefix, "/")) {
		return fmt.Errorf("prefix must start with '/' and must not end with '/': %s", m.Prefix)
	}

	if !m.UseTLS {
		m.logger.Warn(context.Background(), "TLS disabled - connection is not encrypted",
			"target", m.Target)
	} else if !m.VerifyCertificate {
		m.logger.Warn(context.Background(), "TLS certificate verification disabled",
			"target", m.Target)
	}

	for _, f := range []struct{ kind, path string }{
		{"certificate", m.tlsCert},
		{"key", m.tlsKey},
		{"CA", m.tlsCA},
	} {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); err != nil {
			m.logger.Debug(context.Background(), "TLS file validation failed",
				"kind", f.kind,
				"path", f.path,
				"error", err.Error())
			// Only the file name, to avoid disclosing directory layout
			return fmt.Errorf("TLS %s file not found: %s", f.kind, filepath.Base(f.path))
		}
	}

	return nil
}

// createTarget creates a gnmic target configuration without connecting
func (m *Mirror) createTarget() error {
	address := m.Target
	if !strings.Contains(address, ":") {
		address = fmt.Sprintf("%s:%d", address, m.Port)
	}

	opts := []api.TargetOption{
		api.Name(m.Target),
		api.Address(address),
		api.Timeout(m.ConnectTimeout),
		api.Insecure(!m.UseTLS),
		api.SkipVerify(!m.VerifyCertificate),
	}
	if m.username != "" {
		opts = append(opts, api.Username(m.username))
	}
	if m.password != "" {
		opts = append(opts, api.Password(m.password))
	}
	if m.tlsCert != "" {
		opts = append(opts, api.TLSCert(m.tlsCert))
	}
	if m.tlsKey != "" {
		opts = append(opts, api.TLSKey(m.tlsKey))
	}
	if m.tlsCA != "" {
		opts = append(opts, api.TLSCA(m.tlsCA))
	}

	t, err := api.NewTarget(opts...)
	if err != nil {
		return fmt.Errorf("failed to create gnmic target: %w", err)
	}
	m.target = t
	return nil
}

// ensureConnected establishes the connection on first use.
// Caller must hold m.mu.
func (m *Mirror) ensureConnected(ctx context.Context) error {
	if m.target == nil {
		return fmt.Errorf("mirror closed")
	}
	if m.connected {
		return nil
	}

	if err := m.target.CreateGNMIClient(ctx); err != nil {
		return fmt.Errorf("failed to establish connection: %w", err)
	}
	m.connected = true

	m.logger.Info(ctx, "gNMI mirror connected",
		"target", m.Target)
	return nil
}

// reconnect replaces a broken connection. Caller must hold m.mu.
func (m *Mirror) reconnect(ctx context.Context) error {
	m.logger.Warn(ctx, "gNMI mirror reconnecting",
		"target", m.Target)

	if m.target != nil {
		_ = m.target.Close() //nolint:errcheck // Connection is likely already broken
	}
	m.connected = false

	if err := m.createTarget(); err != nil {
		return fmt.Errorf("failed to recreate target: %w", err)
	}
	return m.ensureConnected(ctx)
}
