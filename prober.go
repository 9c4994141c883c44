// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"context"
	"fmt"
	"sync"
)

// NegotiationState is the progress of firmware-generation discovery on a
// connection
type NegotiationState int

const (
	// StateUnprobed means no manager exists for the connection yet
	StateUnprobed NegotiationState = iota

	// StateProbing means a generic manager is live and queueing notifications
	StateProbing

	// StateVersioned means a versioned manager owns the connection. It is
	// terminal for the life of the connection.
	StateVersioned
)

// String returns the string representation of a NegotiationState
func (s NegotiationState) String() string {
	switch s {
	case StateUnprobed:
		return "unprobed"
	case StateProbing:
		return "probing"
	case StateVersioned:
		return "versioned"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Prober discovers the firmware generation of a freshly opened connection
//
// It runs a manager over GenericCatalog that queues notifications instead
// of acting on them. Upgrade hands the connection and cache to a manager
// for the real catalog and replays the queued notifications into it.
//
// Example:
//
//	t, _ := zik.Dial(ctx, "tcp", "192.168.1.50:5000")
//	prober, _ := zik.NewProber(t)
//	mgr, err := prober.Negotiate(ctx, zik.DefaultVersionPolicy)
//	if err != nil {
//	    prober.Close()
//	    log.Fatal(err)
//	}
//	defer mgr.Close()
type Prober struct {
	mu sync.Mutex

	manager *Manager
	queue   *QueueStrategy
	state   NegotiationState
}

// NewProber starts probing on transport
//
// Options apply to the generic manager; WithStrategy is overridden.
func NewProber(transport Transport, opts ...func(*Manager)) (*Prober, error) {
	queue := &QueueStrategy{}

	all := make([]func(*Manager), 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, WithStrategy(queue))

	m, err := NewManager(transport, GenericCatalog, all...)
	if err != nil {
		return nil, err
	}

	return &Prober{
		manager: m,
		queue:   queue,
		state:   StateProbing,
	}, nil
}

// State returns the negotiation state
func (p *Prober) State() NegotiationState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Manager returns the generic manager used while probing
func (p *Prober) Manager() *Manager {
	return p.manager
}

// Pending returns the notifications queued so far
func (p *Prober) Pending() []Notification {
	return p.queue.Pending()
}

// APIVersion reads the firmware version string from the device
//
// The version is taken from "software.version", falling back to
// "software.sip6".
func (p *Prober) APIVersion(ctx context.Context) (string, error) {
	v, err := p.manager.Get(ctx, PathSoftwareVersion)
	if err != nil {
		return "", err
	}
	return v.SoftwareVersion()
}

// Upgrade hands the connection to a manager for catalog
//
// The new manager shares the transport and cache, and every queued
// notification is replayed into it in arrival order. The prober is
// retired: its manager answers ErrSuperseded from then on. If the replay
// fails the new manager is closed and the error returned.
func (p *Prober) Upgrade(ctx context.Context, catalog *Catalog, opts ...func(*Manager)) (*Manager, error) {
	if catalog == nil {
		return nil, fmt.Errorf("upgrade: catalog cannot be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateVersioned {
		return nil, &Error{Operation: "upgrade", Kind: ErrSuperseded, Message: "connection already versioned"}
	}

	generic := p.manager
	generic.mu.Lock()
	if err := generic.usable("upgrade", ""); err != nil {
		generic.mu.Unlock()
		return nil, err
	}
	generic.state = stateSuperseded
	generic.mu.Unlock()
	p.state = StateVersioned

	all := make([]func(*Manager), 0, len(opts)+3)
	all = append(all, WithLogger(generic.logger), WithPrettyPrintLogs(generic.prettyPrintLogs))
	all = append(all, opts...)
	all = append(all, WithCache(generic.cache))

	m, err := NewManager(generic.transport, catalog, all...)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}

	pending := p.queue.drain()
	m.logger.Info(ctx, "zik connection versioned",
		"catalog", catalog.Name(),
		"replay", len(pending))

	if err := m.replay(ctx, pending); err != nil {
		_ = m.Close() //nolint:errcheck // Replay error takes precedence
		return nil, err
	}

	return m, nil
}

// Negotiate reads the firmware version, selects a catalog with policy and
// upgrades to it
func (p *Prober) Negotiate(ctx context.Context, policy VersionPolicy, opts ...func(*Manager)) (*Manager, error) {
	version, err := p.APIVersion(ctx)
	if err != nil {
		return nil, err
	}

	catalog, err := policy.Select(version)
	if err != nil {
		return nil, fmt.Errorf("negotiate: %w", err)
	}

	p.manager.logger.Info(ctx, "zik firmware version detected",
		"version", version,
		"catalog", catalog.Name())

	return p.Upgrade(ctx, catalog, opts...)
}

// Close releases the transport if no versioned manager owns it yet
func (p *Prober) Close() error {
	return p.manager.Close()
}
