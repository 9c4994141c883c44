// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"sort"
	"sync"
)

// Cache holds the last-known value of each resource
//
// A Cache is shared by reference between the prober and the versioned
// manager that replaces it, so values fetched while probing survive the
// upgrade. It is safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	values map[string]Value
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{values: make(map[string]Value)}
}

// Load returns the cached value of path
func (c *Cache) Load(path string) (Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[path]
	return v, ok
}

// Store records the value of path
func (c *Cache) Store(path string, v Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[path] = v
}

// Delete forgets the value of path
func (c *Cache) Delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, path)
}

// Len returns the number of cached resources
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Paths returns the cached resource paths, sorted
func (c *Cache) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, 0, len(c.values))
	for p := range c.values {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Snapshot returns a copy of all cached values
func (c *Cache) Snapshot() map[string]Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]Value, len(c.values))
	for p, v := range c.values {
		snapshot[p] = v
	}
	return snapshot
}

// retain drops every entry for which keep returns false and reports the
// dropped paths
func (c *Cache) retain(keep func(path string) bool) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var dropped []string
	for p := range c.values {
		if !keep(p) {
			delete(c.values, p)
			dropped = append(dropped, p)
		}
	}
	sort.Strings(dropped)
	return dropped
}
