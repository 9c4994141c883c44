// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package zik

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// VersionRule selects Catalog when the firmware version satisfies Constraint
type VersionRule struct {
	// Constraint is a Masterminds/semver constraint, e.g. ">= 2.0"
	Constraint string

	// Catalog is used when the constraint matches
	Catalog *Catalog
}

// VersionPolicy maps firmware version strings to catalogs. Rules are
// evaluated in order and the first match wins.
type VersionPolicy []VersionRule

// DefaultVersionPolicy sends 2.x and later firmware to V2Catalog and
// everything before it to V1Catalog.
var DefaultVersionPolicy = VersionPolicy{
	{Constraint: ">= 2.0", Catalog: V2Catalog},
	{Constraint: "< 2.0", Catalog: V1Catalog},
}

// Select returns the catalog for a firmware version string
//
// Version strings as reported by the device ("1.92", "2.05", "3.07") are
// coerced to semantic versions before matching. Leading zeros in a segment
// are dropped, so "2.05" matches as 2.5.0.
//
// Example:
//
//	catalog, err := zik.DefaultVersionPolicy.Select("2.3")
//	// catalog == zik.V2Catalog
func (p VersionPolicy) Select(version string) (*Catalog, error) {
	v, err := semver.NewVersion(normalizeVersion(version))
	if err != nil {
		return nil, fmt.Errorf("invalid firmware version %q: %w", version, err)
	}

	for i, rule := range p {
		c, err := semver.NewConstraint(rule.Constraint)
		if err != nil {
			return nil, fmt.Errorf("version rule %d: invalid constraint %q: %w", i, rule.Constraint, err)
		}
		if rule.Catalog == nil {
			return nil, fmt.Errorf("version rule %d: catalog cannot be nil", i)
		}
		if c.Check(v) {
			return rule.Catalog, nil
		}
	}

	return nil, fmt.Errorf("no catalog matches firmware version %q", version)
}

// normalizeVersion trims whitespace and strips leading zeros from the
// numeric segments of a dotted version
func normalizeVersion(version string) string {
	segments := strings.Split(strings.TrimSpace(version), ".")
	for i, seg := range segments {
		trimmed := strings.TrimLeft(seg, "0")
		if trimmed == "" && seg != "" {
			trimmed = "0"
		}
		if trimmed != "" && trimmed[0] >= '0' && trimmed[0] <= '9' {
			segments[i] = trimmed
		}
	}
	return strings.Join(segments, ".")
}
