// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mirror

import "fmt"

// Encoding constants for published values
const (
	// EncodingJSON uses standard JSON encoding
	EncodingJSON = "json"

	// EncodingJSONIETF uses JSON encoding with IETF conventions (default)
	EncodingJSONIETF = "json_ietf"

	// EncodingProto uses Protocol Buffer encoding
	EncodingProto = "proto"

	// EncodingASCII uses ASCII encoding
	EncodingASCII = "ascii"

	// EncodingBytes uses raw byte encoding
	EncodingBytes = "bytes"
)

// ValidEncodings contains the list of valid encoding values
var ValidEncodings = []string{
	EncodingJSON,
	EncodingJSONIETF,
	EncodingProto,
	EncodingASCII,
	EncodingBytes,
}

// ValidateEncoding checks if the encoding is valid
//
// Device answers are JSON documents, so only the JSON encodings carry them
// faithfully; the others are accepted for targets that insist on them.
func ValidateEncoding(enc string) error {
	for _, valid := range ValidEncodings {
		if enc == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid encoding: %s (valid values: json, json_ietf, proto, ascii, bytes)", enc)
}
