// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"context"
	"sync"
)

// Refresher re-reads resources from inside a running request cycle
type Refresher interface {
	// Catalog returns the catalog of the manager running the cycle
	Catalog() *Catalog

	// Refresh reads path from the device and updates the cache
	Refresh(ctx context.Context, path string) (Value, error)
}

// NotificationStrategy decides what a manager does with a notification
// received while it waits for an answer.
//
// Errors wrapping ErrUnknownResource or ErrUnsupportedVerb are logged and
// ignored by the manager; any other error fails the request in progress.
type NotificationStrategy interface {
	HandleNotification(ctx context.Context, r Refresher, n Notification) error
}

// RefetchStrategy treats every notification as "this resource changed" and
// re-reads the resource immediately, keeping the cache current at the cost
// of an extra round trip. It is the default for versioned managers.
type RefetchStrategy struct{}

// HandleNotification re-reads the notified resource
func (RefetchStrategy) HandleNotification(ctx context.Context, r Refresher, n Notification) error {
	_, err := r.Refresh(ctx, n.Resource())
	return err
}

// QueueStrategy keeps notifications for later replay. The prober uses it
// because, before the firmware generation is known, it cannot tell which
// resources are safe to read.
type QueueStrategy struct {
	mu      sync.Mutex
	pending []Notification
}

// HandleNotification appends n to the queue
func (q *QueueStrategy) HandleNotification(_ context.Context, _ Refresher, n Notification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, n)
	return nil
}

// Pending returns a copy of the queued notifications in arrival order
func (q *QueueStrategy) Pending() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := make([]Notification, len(q.pending))
	copy(result, q.pending)
	return result
}

// drain empties the queue and returns its contents
func (q *QueueStrategy) drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.pending
	q.pending = nil
	return result
}
