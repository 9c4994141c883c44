// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error kinds. Every *Error wraps exactly one of these, so callers can use
// errors.Is to branch on the failure class.
var (
	// ErrUnknownResource means the path is absent from the active catalog
	ErrUnknownResource = errors.New("unknown resource")

	// ErrUnsupportedVerb means the path is known but the verb is not permitted
	ErrUnsupportedVerb = errors.New("unsupported verb")

	// ErrProtocolViolation means a received message was neither a valid
	// answer nor a valid notification, or an answer lacked an expected value
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrConnectionLost means the transport failed and is no longer usable
	ErrConnectionLost = errors.New("connection lost")

	// ErrClosed means the manager was closed by the caller
	ErrClosed = errors.New("manager closed")

	// ErrSuperseded means the prober handed its connection to a versioned manager
	ErrSuperseded = errors.New("prober superseded by versioned manager")
)

// Error represents a structured failure with operation context
type Error struct {
	// Operation name that failed (get, fetch, set, enable, disable, decode, ...)
	Operation string

	// Path is the resource path involved, if any
	Path string

	// Verb is the verb involved, if any
	Verb Verb

	// Kind is one of the Err* sentinels
	Kind error

	// Human-readable error message
	Message string

	// InternalMsg contains detailed error information for internal logging
	InternalMsg string

	// Cause is the underlying I/O or decode error, if any
	Cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("zik: %s %s failed: %s: %s", e.Operation, e.Path, e.Kind, e.Message)
	}
	return fmt.Sprintf("zik: %s failed: %s: %s", e.Operation, e.Kind, e.Message)
}

// DetailedError returns the full error message including internal details
//
// Internal details may carry raw device payloads. Use it for debug output only.
func (e *Error) DetailedError() string {
	if e.InternalMsg == "" {
		return e.Error()
	}
	return fmt.Sprintf("%s (internal: %s)", e.Error(), e.InternalMsg)
}

// Unwrap returns the error kind and cause so errors.Is matches both the
// sentinels and the underlying error (io.EOF, context.DeadlineExceeded, ...)
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// GRPCStatus maps the error kind onto a gRPC status
//
// This lets applications that expose the device through a gRPC service
// return engine errors unchanged:
//
//	if err != nil {
//	    return nil, err // status.FromError(err) yields the mapped code
//	}
func (e *Error) GRPCStatus() *status.Status {
	return status.New(codeForKind(e.Kind), e.Error())
}

// codeForKind returns the gRPC code matching an error kind
func codeForKind(kind error) codes.Code {
	switch {
	case errors.Is(kind, ErrUnknownResource):
		return codes.NotFound
	case errors.Is(kind, ErrUnsupportedVerb):
		return codes.Unimplemented
	case errors.Is(kind, ErrProtocolViolation):
		return codes.DataLoss
	case errors.Is(kind, ErrConnectionLost):
		return codes.Unavailable
	case errors.Is(kind, ErrClosed), errors.Is(kind, ErrSuperseded):
		return codes.FailedPrecondition
	default:
		return codes.Unknown
	}
}

// protocolError builds an ErrProtocolViolation error
func protocolError(op, message, internal string) *Error {
	return &Error{
		Operation:   op,
		Kind:        ErrProtocolViolation,
		Message:     message,
		InternalMsg: internal,
	}
}

// connectionError builds an ErrConnectionLost error wrapping the I/O cause
func connectionError(op, path string, cause error) *Error {
	e := &Error{
		Operation: op,
		Path:      path,
		Kind:      ErrConnectionLost,
		Message:   "transport unusable",
	}
	if cause != nil {
		e.InternalMsg = cause.Error()
		e.Cause = cause
	}
	return e
}
