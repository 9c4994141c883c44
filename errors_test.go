// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"context"
	"errors"
	"io"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TestError_Error tests the Error() method
func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      Error
		expected string
	}{
		{
			name: "with path",
			err: Error{
				Operation: "enable",
				Path:      PathFlightMode,
				Kind:      ErrUnsupportedVerb,
				Message:   "enable not permitted by catalog v1",
			},
			expected: "zik: enable /api/flight_mode failed: unsupported verb: enable not permitted by catalog v1",
		},
		{
			name: "without path",
			err: Error{
				Operation: "decode",
				Kind:      ErrProtocolViolation,
				Message:   "empty message",
			},
			expected: "zik: decode failed: protocol violation: empty message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// TestError_DetailedError tests that internal details stay out of Error()
func TestError_DetailedError(t *testing.T) {
	e := protocolError("decode", "message is not an object", `[1,2]`)

	if got := e.Error(); got != "zik: decode failed: protocol violation: message is not an object" {
		t.Errorf("Error() = %q", got)
	}
	if got, want := e.DetailedError(), e.Error()+" (internal: [1,2])"; got != want {
		t.Errorf("DetailedError() = %q, want %q", got, want)
	}

	plain := &Error{Operation: "get", Kind: ErrClosed, Message: "manager is closed"}
	if plain.DetailedError() != plain.Error() {
		t.Error("DetailedError() without internal message should equal Error()")
	}
}

// TestError_Unwrap tests errors.Is against kinds and causes
func TestError_Unwrap(t *testing.T) {
	err := connectionError("fetch", PathBattery, io.EOF)

	if !errors.Is(err, ErrConnectionLost) {
		t.Error("expected ErrConnectionLost")
	}
	if !errors.Is(err, io.EOF) {
		t.Error("expected cause io.EOF to be matched")
	}
	if errors.Is(err, ErrProtocolViolation) {
		t.Error("unexpected ErrProtocolViolation")
	}
	if err.InternalMsg != io.EOF.Error() {
		t.Errorf("InternalMsg = %q", err.InternalMsg)
	}

	wrapped := connectionError("send", "", context.DeadlineExceeded)
	if !errors.Is(wrapped, context.DeadlineExceeded) {
		t.Error("expected context.DeadlineExceeded to be matched")
	}

	noCause := connectionError("send", "", nil)
	if len(noCause.Unwrap()) != 1 {
		t.Errorf("expected only the kind without a cause, got %v", noCause.Unwrap())
	}
}

// TestError_GRPCStatus tests the kind to gRPC code mapping
func TestError_GRPCStatus(t *testing.T) {
	tests := []struct {
		kind error
		code codes.Code
	}{
		{ErrUnknownResource, codes.NotFound},
		{ErrUnsupportedVerb, codes.Unimplemented},
		{ErrProtocolViolation, codes.DataLoss},
		{ErrConnectionLost, codes.Unavailable},
		{ErrClosed, codes.FailedPrecondition},
		{ErrSuperseded, codes.FailedPrecondition},
		{errors.New("other"), codes.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.kind.Error(), func(t *testing.T) {
			var err error = &Error{Operation: "get", Kind: tt.kind, Message: "m"}
			st, ok := status.FromError(err)
			if !ok {
				t.Fatal("status.FromError should recognise *Error")
			}
			if st.Code() != tt.code {
				t.Errorf("code = %s, want %s", st.Code(), tt.code)
			}
			if st.Message() != err.Error() {
				t.Errorf("message = %q, want %q", st.Message(), err.Error())
			}
		})
	}
}
