// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"context"

	"go.uber.org/zap"
)

// ZapLogger forwards log output to a go.uber.org/zap logger
//
// Key-value pairs are passed through zap's sugared API, so they appear as
// structured fields.
//
// Example:
//
//	z, _ := zap.NewProduction()
//	defer z.Sync()
//	mgr, _ := zik.NewManager(transport, zik.V2Catalog,
//	    zik.WithLogger(zik.NewZapLogger(z)))
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger creates a ZapLogger. A nil logger yields a no-op zap logger.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{sugar: logger.Sugar()}
}

// Debug logs a debug message with structured key-value pairs
func (z *ZapLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	z.sugar.Debugw(msg, keysAndValues...)
}

// Info logs an informational message with structured key-value pairs
func (z *ZapLogger) Info(_ context.Context, msg string, keysAndValues ...any) {
	z.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a warning message with structured key-value pairs
func (z *ZapLogger) Warn(_ context.Context, msg string, keysAndValues ...any) {
	z.sugar.Warnw(msg, keysAndValues...)
}

// Error logs an error message with structured key-value pairs
func (z *ZapLogger) Error(_ context.Context, msg string, keysAndValues ...any) {
	z.sugar.Errorw(msg, keysAndValues...)
}
