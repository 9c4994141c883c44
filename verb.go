// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import "fmt"

// Verb is the operation applied to a resource
type Verb string

// Verbs understood by the device
const (
	// VerbGet reads the current value of a resource
	VerbGet Verb = "get"

	// VerbSet writes a new value to a resource
	VerbSet Verb = "set"

	// VerbEnable switches a toggle resource on
	VerbEnable Verb = "enable"

	// VerbDisable switches a toggle resource off
	VerbDisable Verb = "disable"
)

// ValidVerbs contains the list of valid verb values
var ValidVerbs = []Verb{
	VerbGet,
	VerbSet,
	VerbEnable,
	VerbDisable,
}

// Suffix returns the path segment appended to a resource path when the
// verb is sent on the wire (e.g. "/get").
func (v Verb) Suffix() string {
	return "/" + string(v)
}

// String returns the verb as written on the wire
func (v Verb) String() string {
	return string(v)
}

// ParseVerb converts a verb name into a Verb
//
// Returns an error if the name is not one of the supported verbs.
//
// Example:
//
//	verb, err := zik.ParseVerb("enable")
//	if err != nil {
//	    log.Fatal(err)
//	}
func ParseVerb(name string) (Verb, error) {
	for _, valid := range ValidVerbs {
		if Verb(name) == valid {
			return valid, nil
		}
	}
	return "", fmt.Errorf("invalid verb: %s (valid values: get, set, enable, disable)", name)
}
