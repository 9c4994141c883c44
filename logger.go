// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"
)

// MaxLogValueLength caps a single logged value. Device payloads and names
// longer than this are truncated.
const MaxLogValueLength = 1024

// truncatedSuffix marks a value cut at MaxLogValueLength
const truncatedSuffix = "...[TRUNCATED]"

// Logger receives the engine's diagnostic output
//
// Messages are fixed strings prefixed with "zik" by the manager and prober
// and plain ("frame sent", "websocket message received") by transports.
// Context travels as key-value pairs; the keys in use are:
//
//	operation  get, fetch, set, enable, disable, refresh, replay, upgrade
//	path       resource path the operation addresses
//	verb       get, set, enable or disable
//	resource   resource derived from a notification path
//	depth      nesting of notification-triggered refreshes
//	catalog    catalog name (generic, v1, v2)
//	version    firmware version reported while probing
//	pending    notifications queued before a catalog was chosen
//	index      position of a replayed notification in the queue
//	cached     cache entries kept when a manager starts
//	paths      cache entries dropped because the catalog cannot read them
//	bytes      size of a frame on the wire
//	preamble   bytes discarded ahead of an inbound payload
//	answer     device payload, Debug only, see WithPrettyPrintLogs
//	error      failure text
//
// DefaultLogger, ZapLogger and NoOpLogger (the default) implement it. Any
// structured logger can be adapted in a few lines:
//
//	type slogLogger struct{ l *slog.Logger }
//
//	func (s slogLogger) Debug(ctx context.Context, msg string, kv ...any) {
//	    s.l.DebugContext(ctx, msg, kv...)
//	}
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

// LogLevel is the lowest severity a DefaultLogger writes
type LogLevel int

const (
	// LogLevelDebug writes every frame, request and answer
	LogLevelDebug LogLevel = iota

	// LogLevelInfo writes connection lifecycle events such as versioning
	LogLevelInfo

	// LogLevelWarn writes skipped notifications and capped refreshes
	LogLevelWarn

	// LogLevelError writes transport failures and protocol violations
	LogLevelError

	// LogLevelNone silences the logger
	LogLevelNone
)

var levelNames = [...]string{
	LogLevelDebug: "DEBUG",
	LogLevelInfo:  "INFO",
	LogLevelWarn:  "WARN",
	LogLevelError: "ERROR",
	LogLevelNone:  "NONE",
}

// String returns the level name used as the line prefix
func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("UNKNOWN(%d)", int(l))
	}
	return levelNames[l]
}

// DefaultLogger writes one line per event through the standard log package
//
// Lines look like:
//
//	[WARN] zik notification for resource outside catalog path=/api/flight_mode/get catalog=v1
//
// Values are sanitized, since names and payloads come from the device.
type DefaultLogger struct {
	level LogLevel
}

// NewDefaultLogger creates a DefaultLogger writing events at level and above
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return &DefaultLogger{level: level}
}

func (l *DefaultLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	l.emit(LogLevelDebug, msg, keysAndValues)
}

func (l *DefaultLogger) Info(_ context.Context, msg string, keysAndValues ...any) {
	l.emit(LogLevelInfo, msg, keysAndValues)
}

func (l *DefaultLogger) Warn(_ context.Context, msg string, keysAndValues ...any) {
	l.emit(LogLevelWarn, msg, keysAndValues)
}

func (l *DefaultLogger) Error(_ context.Context, msg string, keysAndValues ...any) {
	l.emit(LogLevelError, msg, keysAndValues)
}

// emit formats and writes one line. msg comes from this package and is
// written as is; keys and values are sanitized.
func (l *DefaultLogger) emit(level LogLevel, msg string, keysAndValues []any) {
	if level < l.level {
		return
	}

	var b strings.Builder
	b.Grow(len(msg) + 8 + len(keysAndValues)*24)
	b.WriteByte('[')
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)

	for i := 0; i < len(keysAndValues); i += 2 {
		b.WriteByte(' ')
		b.WriteString(sanitizeLogValue(keysAndValues[i]))
		b.WriteByte('=')
		if i+1 < len(keysAndValues) {
			b.WriteString(sanitizeLogValue(keysAndValues[i+1]))
		} else {
			b.WriteString("<MISSING>")
		}
	}

	log.Println(b.String())
}

// sanitizeLogValue renders val on a single line
//
// Device-supplied strings (friendly names, payloads) must not be able to
// forge log lines: line breaks and tabs become spaces, other control
// bytes and invalid UTF-8 become '.', zero-width characters are dropped
// and a right-to-left override becomes a space. Values are truncated at
// MaxLogValueLength.
//
//	"Zik\n[ERROR] forged" -> "Zik [ERROR] forged"
func sanitizeLogValue(val any) string {
	str := fmt.Sprintf("%v", val)
	if len(str) > MaxLogValueLength {
		str = str[:MaxLogValueLength] + truncatedSuffix
	}

	var b strings.Builder
	b.Grow(len(str))

	for i := 0; i < len(str); {
		r, size := utf8.DecodeRuneInString(str[i:])
		switch {
		case r == utf8.RuneError && size <= 1:
			b.WriteByte('.')
			size = 1
		case r == '\n', r == '\r', r == '\t', r == '\f', r == 0x202E:
			b.WriteByte(' ')
		case r == 0x200B, r == 0x200C, r == 0x200D, r == 0xFEFF:
		case r < 0x20, r == 0x7F:
			b.WriteByte('.')
		default:
			b.WriteString(str[i : i+size])
		}
		i += size
	}

	return b.String()
}

// NoOpLogger discards everything. Managers and transports use it unless
// a logger is configured.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...any) {}
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...any)  {}
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...any)  {}
func (n *NoOpLogger) Error(_ context.Context, _ string, _ ...any) {}

// Limits for logging device answers
const (
	MaxJSONSizeForLogging = 1 * 1024 * 1024 // 1MB
	JSONTooLargeMessage   = "[JSON TOO LARGE FOR LOGGING]"
)

// prepareJSONForLogging formats a device answer for the "answer" key
//
// Answers above MaxJSONSizeForLogging are replaced by a placeholder.
// When pretty is set, valid JSON is indented; anything else is returned
// unchanged.
func prepareJSONForLogging(payload string, pretty bool) string {
	if len(payload) > MaxJSONSizeForLogging {
		return JSONTooLargeMessage
	}
	if !pretty {
		return payload
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(payload), "", "  "); err != nil {
		return payload
	}
	return buf.String()
}
