// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"strings"
	"testing"
)

// TestDefaultVersionPolicy tests catalog selection for firmware versions
func TestDefaultVersionPolicy(t *testing.T) {
	tests := []struct {
		version string
		want    *Catalog
		wantErr bool
	}{
		{version: "1.92", want: V1Catalog},
		{version: "1.0", want: V1Catalog},
		{version: "2.0", want: V2Catalog},
		{version: "2.05", want: V2Catalog},
		{version: "3.07", want: V2Catalog},
		{version: " 2.1 ", want: V2Catalog},
		{version: "unknown", wantErr: true},
		{version: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := DefaultVersionPolicy.Select(tt.version)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Select(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Select(%q) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

// TestNormalizeVersion tests leading zero handling
func TestNormalizeVersion(t *testing.T) {
	tests := map[string]string{
		"2.05":    "2.5",
		"3.07":    "3.7",
		"1.92":    "1.92",
		"2.0":     "2.0",
		"02.00.1": "2.0.1",
		" 2.1 ":   "2.1",
	}
	for in, want := range tests {
		if got := normalizeVersion(in); got != want {
			t.Errorf("normalizeVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestVersionPolicyErrors tests malformed policies
func TestVersionPolicyErrors(t *testing.T) {
	tests := []struct {
		name    string
		policy  VersionPolicy
		wantErr string
	}{
		{
			name:    "no match",
			policy:  VersionPolicy{{Constraint: ">= 5.0", Catalog: V2Catalog}},
			wantErr: "no catalog matches",
		},
		{
			name:    "bad constraint",
			policy:  VersionPolicy{{Constraint: "~> banana", Catalog: V2Catalog}},
			wantErr: "invalid constraint",
		},
		{
			name:    "nil catalog",
			policy:  VersionPolicy{{Constraint: ">= 1.0"}},
			wantErr: "catalog cannot be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.policy.Select("2.0")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestVersionPolicyFirstMatchWins tests rule ordering
func TestVersionPolicyFirstMatchWins(t *testing.T) {
	policy := VersionPolicy{
		{Constraint: ">= 2.0", Catalog: V1Catalog},
		{Constraint: ">= 1.0", Catalog: V2Catalog},
	}
	got, err := policy.Select("2.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != V1Catalog {
		t.Errorf("expected first rule's catalog, got %s", got.Name())
	}
}
