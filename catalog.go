// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Resource paths shared by every firmware generation
const (
	// PathSoftwareVersion is queried while probing the firmware generation
	PathSoftwareVersion = "/api/software/version"

	PathBattery       = "/api/system/battery"
	PathFriendlyName  = "/api/bluetooth/friendlyname"
	PathAutoConnect   = "/api/system/auto_connection/enabled"
	PathANCPhoneMode  = "/api/system/anc_phone_mode/enabled"
	PathSoundEffect   = "/api/audio/sound_effect/enabled"
	PathFlightMode    = "/api/flight_mode"
	PathNoiseControl  = "/api/audio/noise_control/enabled"
	PathTrackMetadata = "/api/audio/track/metadata"
)

// Catalog is the fixed set of resources and verbs supported by one firmware
// generation. A Catalog is immutable after construction and safe for
// concurrent use.
type Catalog struct {
	name      string
	resources map[string]map[Verb]struct{}
}

// NewCatalog creates a catalog from a path to verbs table
//
// The table is copied, later changes to it do not affect the catalog.
//
// Example:
//
//	v3 := zik.NewCatalog("v3", map[string][]zik.Verb{
//	    zik.PathSoftwareVersion: {zik.VerbGet},
//	    "/api/system/battery":   {zik.VerbGet},
//	})
func NewCatalog(name string, resources map[string][]Verb) *Catalog {
	c := &Catalog{
		name:      name,
		resources: make(map[string]map[Verb]struct{}, len(resources)),
	}
	for path, verbs := range resources {
		set := make(map[Verb]struct{}, len(verbs))
		for _, v := range verbs {
			set[v] = struct{}{}
		}
		c.resources[path] = set
	}
	return c
}

// Name returns the catalog name
func (c *Catalog) Name() string {
	return c.name
}

// Has reports whether path is part of the catalog
func (c *Catalog) Has(path string) bool {
	_, ok := c.resources[path]
	return ok
}

// Supports reports whether verb may be applied to path
func (c *Catalog) Supports(path string, verb Verb) bool {
	verbs, ok := c.resources[path]
	if !ok {
		return false
	}
	_, ok = verbs[verb]
	return ok
}

// RequireSupport fails with ErrUnknownResource if path is absent, or with
// ErrUnsupportedVerb if path is present but verb is not listed.
func (c *Catalog) RequireSupport(path string, verb Verb) error {
	verbs, ok := c.resources[path]
	if !ok {
		return &Error{
			Operation: string(verb),
			Path:      path,
			Verb:      verb,
			Kind:      ErrUnknownResource,
			Message:   fmt.Sprintf("not in catalog %s", c.name),
		}
	}
	if _, ok := verbs[verb]; !ok {
		return &Error{
			Operation: string(verb),
			Path:      path,
			Verb:      verb,
			Kind:      ErrUnsupportedVerb,
			Message:   fmt.Sprintf("%s not permitted by catalog %s", verb, c.name),
		}
	}
	return nil
}

// Verbs returns the verbs supported by path in the order of ValidVerbs
func (c *Catalog) Verbs(path string) []Verb {
	verbs, ok := c.resources[path]
	if !ok {
		return nil
	}
	result := make([]Verb, 0, len(verbs))
	for _, v := range ValidVerbs {
		if _, ok := verbs[v]; ok {
			result = append(result, v)
		}
	}
	return result
}

// Paths returns every resource path in the catalog, sorted
func (c *Catalog) Paths() []string {
	paths := make([]string, 0, len(c.resources))
	for p := range c.resources {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// EmptyCatalog supports nothing. Every request against it fails fast.
var EmptyCatalog = NewCatalog("empty", nil)

// GenericCatalog is used before the firmware generation is known
var GenericCatalog = NewCatalog("generic", map[string][]Verb{
	PathSoftwareVersion: {VerbGet},
})

// V1Catalog covers the first firmware generation
var V1Catalog = NewCatalog("v1", map[string][]Verb{
	PathSoftwareVersion:                     {VerbGet},
	PathBattery:                             {VerbGet},
	PathFriendlyName:                        {VerbGet},
	PathAutoConnect:                         {VerbGet, VerbSet},
	PathANCPhoneMode:                        {VerbGet, VerbSet},
	"/api/audio/specific_mode/enabled":      {VerbGet, VerbSet},
	PathSoundEffect:                         {VerbGet, VerbSet},
	"/api/audio/noise_cancellation/enabled": {VerbGet, VerbSet},
})

// V2Catalog covers the second firmware generation
var V2Catalog = NewCatalog("v2", map[string][]Verb{
	PathSoftwareVersion:                  {VerbGet},
	PathBattery:                          {VerbGet},
	"/api/system/pi":                     {VerbGet},
	PathFriendlyName:                     {VerbGet},
	PathAutoConnect:                      {VerbGet, VerbSet},
	PathANCPhoneMode:                     {VerbGet, VerbSet},
	PathFlightMode:                       {VerbGet, VerbEnable, VerbDisable},
	PathSoundEffect:                      {VerbGet, VerbSet},
	"/api/audio/sound_effect/room_size":  {VerbGet, VerbSet},
	"/api/audio/sound_effect/angle":      {VerbGet, VerbSet},
	"/api/audio/noise":                   {VerbGet},
	"/api/audio/noise_control":           {VerbGet},
	PathNoiseControl:                     {VerbGet, VerbSet},
	PathTrackMetadata:                    {VerbGet},
})

// catalogFile is the YAML layout accepted by LoadCatalog
type catalogFile struct {
	Name      string              `yaml:"name"`
	Resources map[string][]string `yaml:"resources"`
}

// LoadCatalog parses a catalog definition from YAML
//
// The document names the catalog and lists the verbs of every resource:
//
//	name: v3
//	resources:
//	  /api/software/version: [get]
//	  /api/flight_mode: [get, enable, disable]
//
// Returns an error if the document is malformed, a path is empty or does
// not start with "/", or a verb is unknown.
func LoadCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if strings.TrimSpace(file.Name) == "" {
		return nil, fmt.Errorf("catalog: name cannot be empty")
	}

	resources := make(map[string][]Verb, len(file.Resources))
	for path, names := range file.Resources {
		if path == "" || path[0] != '/' {
			return nil, fmt.Errorf("catalog %s: resource path must start with '/': %q", file.Name, path)
		}
		verbs := make([]Verb, 0, len(names))
		for _, name := range names {
			v, err := ParseVerb(strings.ToLower(strings.TrimSpace(name)))
			if err != nil {
				return nil, fmt.Errorf("catalog %s: resource %s: %w", file.Name, path, err)
			}
			verbs = append(verbs, v)
		}
		resources[path] = verbs
	}

	return NewCatalog(file.Name, resources), nil
}
