// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// TestCatalogSupports checks the built-in catalogs against known entries
func TestCatalogSupports(t *testing.T) {
	tests := []struct {
		name    string
		catalog *Catalog
		path    string
		verb    Verb
		want    bool
	}{
		{"empty rejects everything", EmptyCatalog, PathSoftwareVersion, VerbGet, false},
		{"generic reads version", GenericCatalog, PathSoftwareVersion, VerbGet, true},
		{"generic has no battery", GenericCatalog, PathBattery, VerbGet, false},
		{"v1 sets noise cancellation", V1Catalog, "/api/audio/noise_cancellation/enabled", VerbSet, true},
		{"v1 has no flight mode", V1Catalog, PathFlightMode, VerbEnable, false},
		{"v2 enables flight mode", V2Catalog, PathFlightMode, VerbEnable, true},
		{"v2 disables flight mode", V2Catalog, PathFlightMode, VerbDisable, true},
		{"v2 cannot set flight mode", V2Catalog, PathFlightMode, VerbSet, false},
		{"v2 cannot set battery", V2Catalog, PathBattery, VerbSet, false},
		{"v2 sets noise control", V2Catalog, PathNoiseControl, VerbSet, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.catalog.Supports(tt.path, tt.verb); got != tt.want {
				t.Errorf("%s.Supports(%s, %s) = %v, want %v", tt.catalog.Name(), tt.path, tt.verb, got, tt.want)
			}
		})
	}
}

// TestCatalogRequireSupport distinguishes unknown resources from unsupported verbs
func TestCatalogRequireSupport(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		verb    Verb
		wantErr error
	}{
		{"supported", PathBattery, VerbGet, nil},
		{"unknown resource", "/api/does/not/exist", VerbGet, ErrUnknownResource},
		{"unsupported verb", PathBattery, VerbEnable, ErrUnsupportedVerb},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := V2Catalog.RequireSupport(tt.path, tt.verb)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var zerr *Error
			if !errors.As(err, &zerr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if zerr.Path != tt.path || zerr.Verb != tt.verb {
				t.Errorf("error context = %s/%s, want %s/%s", zerr.Path, zerr.Verb, tt.path, tt.verb)
			}
		})
	}

	// unknown and unsupported are distinct kinds
	err := V2Catalog.RequireSupport("/api/does/not/exist", VerbGet)
	if errors.Is(err, ErrUnsupportedVerb) {
		t.Error("unknown resource must not match ErrUnsupportedVerb")
	}
}

// TestCatalogVerbsAndPaths tests the listing helpers
func TestCatalogVerbsAndPaths(t *testing.T) {
	if got, want := V2Catalog.Verbs(PathFlightMode), []Verb{VerbGet, VerbEnable, VerbDisable}; !reflect.DeepEqual(got, want) {
		t.Errorf("Verbs() = %v, want %v", got, want)
	}
	if got := V2Catalog.Verbs("/nope"); got != nil {
		t.Errorf("Verbs() of unknown path = %v, want nil", got)
	}
	if got := GenericCatalog.Paths(); !reflect.DeepEqual(got, []string{PathSoftwareVersion}) {
		t.Errorf("GenericCatalog.Paths() = %v", got)
	}
	paths := V1Catalog.Paths()
	for i := 1; i < len(paths); i++ {
		if paths[i-1] >= paths[i] {
			t.Fatalf("Paths() not sorted: %v", paths)
		}
	}
	if len(EmptyCatalog.Paths()) != 0 {
		t.Error("EmptyCatalog should have no paths")
	}
}

// TestNewCatalogCopiesInput verifies later changes to the table are ignored
func TestNewCatalogCopiesInput(t *testing.T) {
	table := map[string][]Verb{"/api/x": {VerbGet}}
	c := NewCatalog("copy", table)

	table["/api/x"][0] = VerbSet
	table["/api/y"] = []Verb{VerbGet}

	if !c.Supports("/api/x", VerbGet) || c.Supports("/api/x", VerbSet) {
		t.Error("catalog verbs changed with the input table")
	}
	if c.Has("/api/y") {
		t.Error("catalog gained a path from the input table")
	}
}

// TestLoadCatalog tests YAML catalog definitions
func TestLoadCatalog(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   string
		checkPath string
		checkVerb Verb
	}{
		{
			name: "valid",
			input: `name: v3
resources:
  /api/software/version: [get]
  /api/flight_mode: [get, Enable, disable]
`,
			checkPath: PathFlightMode,
			checkVerb: VerbEnable,
		},
		{
			name:    "missing name",
			input:   "resources:\n  /api/x: [get]\n",
			wantErr: "name cannot be empty",
		},
		{
			name:    "relative path",
			input:   "name: bad\nresources:\n  api/x: [get]\n",
			wantErr: "must start with '/'",
		},
		{
			name:    "unknown verb",
			input:   "name: bad\nresources:\n  /api/x: [toggle]\n",
			wantErr: "invalid verb",
		},
		{
			name:    "malformed document",
			input:   "name: [unclosed",
			wantErr: "catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadCatalog([]byte(tt.input))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Name() != "v3" {
				t.Errorf("Name() = %q, want v3", c.Name())
			}
			if !c.Supports(tt.checkPath, tt.checkVerb) {
				t.Errorf("expected %s to support %s", tt.checkPath, tt.checkVerb)
			}
		})
	}
}
