// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MaxRefreshDepth bounds nested notification refetches. A notification
// arriving deeper than this only invalidates the cached value; the next
// Get re-reads it.
const MaxRefreshDepth = 8

// managerState tracks whether a Manager may still use its transport
type managerState int

const (
	stateOpen managerState = iota
	stateLost
	stateClosed
	stateSuperseded
)

// Manager drives request cycles against one firmware catalog and keeps the
// resource cache consistent with device notifications.
//
// Every public operation validates the path and verb against the catalog
// before any I/O, then runs one request cycle: send the request, then
// receive messages until the answer arrives, passing each notification
// received in between to the notification strategy.
//
// Operations are serialized: the protocol allows one request in flight per
// transport. A Manager whose transport failed answers every later call with
// ErrConnectionLost; reconnecting is up to the caller.
type Manager struct {
	mu sync.Mutex

	transport Transport
	catalog   *Catalog
	cache     *Cache
	strategy  NotificationStrategy

	state managerState

	// depth counts nested refetches triggered by notifications
	depth int

	logger          Logger
	prettyPrintLogs bool
}

// NewManager creates a manager bound to transport and catalog
//
// Without WithCache the manager starts with an empty cache. A seeded
// cache is trimmed to the resources the catalog can read.
//
// Example:
//
//	t, _ := zik.Dial(ctx, "tcp", "192.168.1.50:5000")
//	mgr, err := zik.NewManager(t, zik.V2Catalog,
//	    zik.WithLogger(zik.NewDefaultLogger(zik.LogLevelInfo)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	battery, err := mgr.Get(ctx, zik.PathBattery)
func NewManager(transport Transport, catalog *Catalog, opts ...func(*Manager)) (*Manager, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}

	m := &Manager{
		transport:       transport,
		catalog:         catalog,
		strategy:        RefetchStrategy{},
		logger:          &NoOpLogger{},
		prettyPrintLogs: DefaultPrettyPrintLogs,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.cache == nil {
		m.cache = NewCache()
	}
	if m.strategy == nil {
		m.strategy = RefetchStrategy{}
	}

	dropped := m.cache.retain(func(path string) bool {
		return catalog.Supports(path, VerbGet)
	})
	if len(dropped) > 0 {
		m.logger.Debug(context.Background(), "dropped cached values outside catalog",
			"catalog", catalog.Name(),
			"paths", dropped)
	}

	m.logger.Debug(context.Background(), "zik manager created",
		"catalog", catalog.Name(),
		"cached", m.cache.Len())

	return m, nil
}

// Catalog returns the catalog the manager validates against
func (m *Manager) Catalog() *Catalog {
	return m.catalog
}

// Cache returns the shared resource cache
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Get returns the cached value of path, fetching it if it is not cached
func (m *Manager) Get(ctx context.Context, path string) (Value, error) {
	if err := m.require("get", path, VerbGet); err != nil {
		return Value{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.usable("get", path); err != nil {
		return Value{}, err
	}

	if v, ok := m.cache.Load(path); ok {
		m.logger.Debug(ctx, "zik cache hit",
			"path", path)
		return v, nil
	}

	return m.fetch(ctx, path)
}

// Fetch reads path from the device, stores it in the cache and returns it
func (m *Manager) Fetch(ctx context.Context, path string) (Value, error) {
	if err := m.require("fetch", path, VerbGet); err != nil {
		return Value{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.usable("fetch", path); err != nil {
		return Value{}, err
	}

	return m.fetch(ctx, path)
}

// Enable switches path on, then re-reads it
//
// The device acknowledgement is discarded; the returned value is the
// result of the follow-up read.
func (m *Manager) Enable(ctx context.Context, path string) (Value, error) {
	return m.command(ctx, "enable", path, VerbEnable, "")
}

// Disable switches path off, then re-reads it
func (m *Manager) Disable(ctx context.Context, path string) (Value, error) {
	return m.command(ctx, "disable", path, VerbDisable, "")
}

// Set writes value to path, then re-reads it
//
// value is sent in its lowercase textual form (see FormatValue). The
// cache ends up holding what the device reports after the write, which
// may differ from value.
//
// Example:
//
//	v, err := mgr.Set(ctx, zik.PathNoiseControl, true)
func (m *Manager) Set(ctx context.Context, path string, value any) (Value, error) {
	return m.command(ctx, "set", path, VerbSet, FormatValue(value))
}

// Invalidate forgets the cached value of path so the next Get reads it
// from the device
func (m *Manager) Invalidate(path string) {
	m.cache.Delete(path)
}

// Close releases the transport
//
// Close is safe to call more than once. A manager superseded by an
// upgrade does not own the transport and leaves it open.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateClosed:
		return nil
	case stateSuperseded:
		m.state = stateClosed
		return nil
	}

	m.state = stateClosed
	if err := m.transport.Close(); err != nil {
		m.logger.Warn(context.Background(), "zik transport close returned error",
			"error", err.Error())
		return err
	}

	m.logger.Info(context.Background(), "zik manager closed",
		"catalog", m.catalog.Name())
	return nil
}

// command runs a state-changing verb followed by a resynchronizing read
func (m *Manager) command(ctx context.Context, op, path string, verb Verb, arg string) (Value, error) {
	if err := m.require(op, path, verb); err != nil {
		return Value{}, err
	}
	// The follow-up read needs GET as well; fail before any I/O
	if err := m.require(op, path, VerbGet); err != nil {
		return Value{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.usable(op, path); err != nil {
		return Value{}, err
	}

	if _, err := m.exchange(ctx, op, path, verb, arg); err != nil {
		return Value{}, err
	}

	return m.fetch(ctx, path)
}

// require validates path and verb against the catalog
func (m *Manager) require(op, path string, verb Verb) error {
	if err := m.catalog.RequireSupport(path, verb); err != nil {
		var zerr *Error
		if errors.As(err, &zerr) {
			zerr.Operation = op
		}
		return err
	}
	return nil
}

// usable reports why the manager cannot issue requests, if it cannot.
// Caller must hold m.mu.
func (m *Manager) usable(op, path string) error {
	switch m.state {
	case stateClosed:
		return &Error{Operation: op, Path: path, Kind: ErrClosed, Message: "manager is closed"}
	case stateSuperseded:
		return &Error{Operation: op, Path: path, Kind: ErrSuperseded, Message: "connection handed to versioned manager"}
	case stateLost:
		return &Error{Operation: op, Path: path, Kind: ErrConnectionLost, Message: "transport failed earlier"}
	}
	return nil
}

// fetch reads path and caches the answer. Caller must hold m.mu.
func (m *Manager) fetch(ctx context.Context, path string) (Value, error) {
	v, err := m.exchange(ctx, "fetch", path, VerbGet, "")
	if err != nil {
		return Value{}, err
	}
	m.cache.Store(path, v)
	return v, nil
}

// exchange sends one request and waits for its answer. Caller must hold m.mu.
func (m *Manager) exchange(ctx context.Context, op, path string, verb Verb, arg string) (Value, error) {
	if err := checkContextCancellation(ctx); err != nil {
		return Value{}, err
	}

	req, err := EncodeRequest(path, verb, arg)
	if err != nil {
		return Value{}, fmt.Errorf("%s: %w", op, err)
	}

	m.logger.Debug(ctx, "zik request",
		"operation", op,
		"path", path,
		"verb", verb)

	if err := m.transport.Send(ctx, req); err != nil {
		if errors.Is(err, ErrMessageTooLarge) {
			return Value{}, fmt.Errorf("%s %s: %w", op, path, err)
		}
		m.state = stateLost
		m.logger.Error(ctx, "zik send failed",
			"operation", op,
			"path", path,
			"error", err.Error())
		return Value{}, connectionError(op, path, err)
	}

	return m.awaitAnswer(ctx, op, path)
}

// awaitAnswer receives messages until an answer arrives, dispatching every
// notification received before it. Caller must hold m.mu.
func (m *Manager) awaitAnswer(ctx context.Context, op, path string) (Value, error) {
	for {
		raw, err := m.transport.Receive(ctx)
		if err != nil {
			// a malformed message leaves the channel usable
			var zerr *Error
			if errors.Is(err, ErrProtocolViolation) && errors.As(err, &zerr) {
				annotate(zerr, op, path)
				return Value{}, zerr
			}
			m.state = stateLost
			m.logger.Error(ctx, "zik receive failed",
				"operation", op,
				"path", path,
				"error", err.Error())
			return Value{}, connectionError(op, path, err)
		}

		msg, err := Decode(raw)
		if err != nil {
			var zerr *Error
			if errors.As(err, &zerr) {
				annotate(zerr, op, path)
			}
			m.logger.Error(ctx, "zik protocol violation",
				"operation", op,
				"path", path,
				"error", err.Error())
			return Value{}, err
		}

		switch msg.Kind {
		case KindAnswer:
			m.logger.Debug(ctx, "zik answer",
				"operation", op,
				"path", path,
				"answer", prepareJSONForLogging(msg.Answer.Raw(), m.prettyPrintLogs))
			return msg.Answer, nil
		case KindNotification:
			m.logger.Debug(ctx, "zik notification",
				"path", msg.Notification.Path,
				"pending", path)
			if err := m.dispatch(ctx, msg.Notification); err != nil {
				return Value{}, err
			}
		default:
			return Value{}, protocolError(op, fmt.Sprintf("unexpected message kind %s", msg.Kind), string(raw))
		}
	}
}

// dispatch hands a notification to the strategy. Notifications naming
// resources the catalog cannot read are logged and skipped so they do not
// fail the request in progress. Caller must hold m.mu.
func (m *Manager) dispatch(ctx context.Context, n Notification) error {
	err := m.strategy.HandleNotification(ctx, refresher{m: m}, n)
	if errors.Is(err, ErrUnknownResource) || errors.Is(err, ErrUnsupportedVerb) {
		m.logger.Warn(ctx, "zik notification for resource outside catalog",
			"path", n.Path,
			"resource", n.Resource(),
			"catalog", m.catalog.Name())
		return nil
	}
	return err
}

// replay dispatches notifications received by another manager
func (m *Manager) replay(ctx context.Context, notifications []Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.usable("replay", ""); err != nil {
		return err
	}

	for i, n := range notifications {
		m.logger.Debug(ctx, "zik replaying notification",
			"index", i,
			"path", n.Path)
		if err := m.dispatch(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// refresher is the Refresher handed to strategies during a request cycle.
// It runs under the lock already held by the cycle.
type refresher struct {
	m *Manager
}

// Catalog returns the active catalog
func (r refresher) Catalog() *Catalog {
	return r.m.catalog
}

// Refresh re-reads path and updates the cache
func (r refresher) Refresh(ctx context.Context, path string) (Value, error) {
	m := r.m
	if err := m.require("refresh", path, VerbGet); err != nil {
		return Value{}, err
	}

	if m.depth >= MaxRefreshDepth {
		m.cache.Delete(path)
		m.logger.Warn(ctx, "zik refresh nested too deeply, invalidating instead",
			"path", path,
			"depth", m.depth)
		return Value{}, nil
	}

	m.depth++
	defer func() { m.depth-- }()

	return m.fetch(ctx, path)
}

// annotate fills in the operation context of an error raised below the engine
func annotate(e *Error, op, path string) {
	if e.Path == "" {
		e.Path = path
	}
	switch e.Operation {
	case "":
		e.Operation = op
	case "decode", "receive":
		e.Operation = op + " " + e.Operation
	}
}

// checkContextCancellation checks if context is canceled or deadline exceeded
//
// Returns context.Canceled if context is canceled, context.DeadlineExceeded if
// deadline exceeded, or nil if context is still valid.
func checkContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
