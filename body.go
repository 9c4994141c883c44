// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"fmt"

	"github.com/tidwall/sjson"
)

// Body provides a fluent interface for building device documents using
// sjson for path-based manipulation.
//
// The Body builder tracks errors internally to enable method chaining
// while providing error checking through Bytes() or Err() methods.
//
// Example:
//
//	raw, err := zik.Body{}.
//	    Set("method", "SET").
//	    Set("path", "/api/flight_mode/set").
//	    Set("arg", "true").
//	    Bytes()
type Body struct {
	// str contains the JSON string being built
	str string
	// err tracks the first error encountered during building
	err error
}

// Set sets a value at the specified JSON path and returns a new Body
//
// Once an error occurs, all subsequent operations are no-ops that preserve the error.
func (b Body) Set(path string, value any) Body {
	if b.err != nil {
		return b
	}

	result, err := sjson.Set(b.str, path, value)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("Set(%q): %w", path, err)}
	}
	return Body{str: result}
}

// String returns the JSON string representation and any error encountered during building
func (b Body) String() (string, error) {
	return b.str, b.err
}

// Err returns any error that occurred during the building process
func (b Body) Err() error {
	return b.err
}

// Bytes returns the JSON byte slice representation and any error encountered during building
func (b Body) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return []byte(b.str), nil
}
