// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Request methods written into outbound documents
const (
	MethodGet = "GET"
	MethodSet = "SET"
)

// Document keys
const (
	keyAnswer = "answer"
	keyNotify = "notify"
	keyPath   = "path"
)

// MaxPathLength is the maximum length for a resource path
const MaxPathLength = 1024

// MessageKind distinguishes the shapes a decoded device message can take
type MessageKind int

const (
	// KindMalformed is never returned with a nil error; Decode reports
	// malformed input as ErrProtocolViolation.
	KindMalformed MessageKind = iota

	// KindAnswer terminates a request cycle
	KindAnswer

	// KindNotification is an unsolicited change report
	KindNotification
)

// String returns the string representation of a MessageKind
func (k MessageKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindAnswer:
		return "answer"
	case KindNotification:
		return "notification"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Message is one decoded device message. Exactly one of Answer and
// Notification is meaningful, selected by Kind.
type Message struct {
	Kind         MessageKind
	Answer       Value
	Notification Notification
}

// Notification reports that a resource changed on the device
type Notification struct {
	// Path is the notified path as sent by the device
	Path string

	// Raw is the full notify object
	Raw string
}

// Resource returns the resource the notification refers to: the notified
// path without its last segment.
//
// Example:
//
//	n := zik.Notification{Path: "/api/system/battery/level"}
//	n.Resource() // "/api/system/battery"
func (n Notification) Resource() string {
	i := strings.LastIndexByte(n.Path, '/')
	if i < 0 {
		return n.Path
	}
	return n.Path[:i]
}

// Value is an answer payload as returned by the device
//
// Value is read-only; query it with gjson paths:
//
//	v, _ := mgr.Get(ctx, zik.PathBattery)
//	level := v.Get("system.battery.percent").Int()
type Value struct {
	raw string
}

// NewValue wraps a raw JSON payload
func NewValue(raw string) Value {
	return Value{raw: raw}
}

// Raw returns the payload as JSON
func (v Value) Raw() string {
	return v.raw
}

// Exists reports whether the value carries a payload
func (v Value) Exists() bool {
	return v.raw != ""
}

// Get retrieves a nested field using a gjson path
//
// Returns an empty gjson.Result when the field does not exist.
func (v Value) Get(path string) gjson.Result {
	if v.raw == "" {
		return gjson.Result{}
	}
	return gjson.Get(v.raw, path)
}

// String returns the payload as a string; JSON strings are unquoted
func (v Value) String() string {
	return gjson.Parse(v.raw).String()
}

// Bool returns the payload interpreted as a boolean
func (v Value) Bool() bool {
	return gjson.Parse(v.raw).Bool()
}

// Int returns the payload interpreted as an integer
func (v Value) Int() int64 {
	return gjson.Parse(v.raw).Int()
}

// SoftwareVersion extracts the firmware version from a software-version
// answer. The device reports it under "software.version" or, on some
// generations, "software.sip6".
func (v Value) SoftwareVersion() (string, error) {
	if r := v.Get("software.version"); r.Exists() && r.String() != "" {
		return r.String(), nil
	}
	if r := v.Get("software.sip6"); r.Exists() && r.String() != "" {
		return r.String(), nil
	}
	return "", protocolError("software version",
		"answer carries neither software.version nor software.sip6", v.raw)
}

// FormatValue converts a SET argument into its wire form: the lowercase
// textual representation (booleans become "true"/"false").
func FormatValue(value any) string {
	return strings.ToLower(fmt.Sprint(value))
}

// EncodeRequest builds the wire document for verb applied to path
//
// GET, ENABLE and DISABLE travel as method GET with the verb in the path
// suffix. SET travels as method SET and carries arg.
func EncodeRequest(path string, verb Verb, arg string) ([]byte, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	if _, err := ParseVerb(string(verb)); err != nil {
		return nil, err
	}

	method := MethodGet
	if verb == VerbSet {
		method = MethodSet
	}

	body := Body{}.
		Set("method", method).
		Set(keyPath, path+verb.Suffix())
	if verb == VerbSet {
		body = body.Set("arg", arg)
	}
	return body.Bytes()
}

// EncodeGetRequest builds a GET request for path
func EncodeGetRequest(path string) ([]byte, error) {
	return EncodeRequest(path, VerbGet, "")
}

// EncodeSetRequest builds a SET request for path carrying value
func EncodeSetRequest(path string, value any) ([]byte, error) {
	return EncodeRequest(path, VerbSet, FormatValue(value))
}

// Decode parses one device message
//
// An object with a non-null "answer" field is an answer. An object with a
// "notify" object carrying a non-empty string "path" is a notification.
// Everything else fails with ErrProtocolViolation. Trailing NUL padding
// left by fixed-size reads is ignored.
func Decode(raw []byte) (Message, error) {
	raw = bytes.TrimRight(raw, "\x00")
	if len(bytes.TrimSpace(raw)) == 0 {
		return Message{}, protocolError("decode", "empty message", "")
	}
	if !gjson.ValidBytes(raw) {
		return Message{}, protocolError("decode", "message is not a valid document", string(raw))
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Message{}, protocolError("decode", "message is not an object", string(raw))
	}

	if answer := doc.Get(keyAnswer); answer.Exists() && answer.Type != gjson.Null {
		return Message{Kind: KindAnswer, Answer: Value{raw: answer.Raw}}, nil
	}

	if notify := doc.Get(keyNotify); notify.Exists() {
		path := notify.Get(keyPath)
		if !notify.IsObject() || path.Type != gjson.String || path.String() == "" {
			return Message{}, protocolError("decode", "notification without path", string(raw))
		}
		return Message{
			Kind:         KindNotification,
			Notification: Notification{Path: path.String(), Raw: notify.Raw},
		}, nil
	}

	return Message{}, protocolError("decode", "message has neither answer nor notify", string(raw))
}

// validatePath checks a resource path before it is sent
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if path[0] != '/' {
		return fmt.Errorf("path must start with '/': %s", truncatePath(path))
	}
	if len(path) > MaxPathLength {
		return fmt.Errorf("path exceeds maximum length of %d characters: %s", MaxPathLength, truncatePath(path))
	}
	if strings.IndexByte(path, 0) >= 0 {
		return fmt.Errorf("path contains null byte")
	}
	return nil
}

// truncatePath truncates a path for error messages
func truncatePath(path string) string {
	if len(path) <= 100 {
		return path
	}
	return path[:100] + "..."
}
