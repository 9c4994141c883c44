// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

// DefaultPrettyPrintLogs controls JSON indentation of logged payloads
const DefaultPrettyPrintLogs = false

// Manager configuration options using the functional options pattern

// WithCache shares an existing cache with the manager
//
// Managers created over the same connection share one cache so values
// already read survive a switch of catalog. Entries the catalog cannot
// read are dropped when the manager is created.
func WithCache(cache *Cache) func(*Manager) {
	return func(m *Manager) {
		if cache != nil {
			m.cache = cache
		}
	}
}

// WithStrategy sets the notification strategy (default: RefetchStrategy)
func WithStrategy(strategy NotificationStrategy) func(*Manager) {
	return func(m *Manager) {
		if strategy != nil {
			m.strategy = strategy
		}
	}
}

// WithLogger configures a custom logger for the manager
//
// By default, the manager uses NoOpLogger which discards all log messages.
// Use this option to enable logging with DefaultLogger, ZapLogger or a
// custom logger.
//
// Example:
//
//	logger := zik.NewDefaultLogger(zik.LogLevelInfo)
//	mgr, _ := zik.NewManager(transport, zik.V2Catalog,
//	    zik.WithLogger(logger))
func WithLogger(logger Logger) func(*Manager) {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPrettyPrintLogs enables/disables JSON pretty printing of device
// payloads in debug logs
//
// Default: disabled (false)
func WithPrettyPrintLogs(enabled bool) func(*Manager) {
	return func(m *Manager) {
		m.prettyPrintLogs = enabled
	}
}
