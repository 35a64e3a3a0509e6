// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package version wraps github.com/Masterminds/semver/v3 with the two
// value types the pack composition pipeline needs: a totally ordered
// Version and an npm-style Constraint with a matches predicate.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is a semantic version triple with a total order.
type Version struct {
	v *semver.Version
}

// Parse parses a semantic version string such as "1.2.3".
func Parse(s string) (Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("could not parse version %q: %w", s, err)
	}

	return Version{v: v}, nil
}

// MustParse is like Parse but panics on error; only safe for constants known
// to be valid at compile time.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return v
}

// String renders the version in canonical "major.minor.patch[-pre][+build]" form.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}

	return v.v.String()
}

// Major returns the major version component.
func (v Version) Major() uint64 { return v.v.Major() }

// Minor returns the minor version component.
func (v Version) Minor() uint64 { return v.v.Minor() }

// Patch returns the patch version component.
func (v Version) Patch() uint64 { return v.v.Patch() }

// LessThan reports whether v sorts strictly before other.
func (v Version) LessThan(other Version) bool {
	return v.v.LessThan(other.v)
}

// Equal reports whether v and other denote the same version.
func (v Version) Equal(other Version) bool {
	return v.v.Equal(other.v)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than other.
func (v Version) Compare(other Version) int {
	return v.v.Compare(other.v)
}

// AtLeast reports whether v is greater than or equal to other. Used by the
// CLI Adapter's supports-qlx() check (version >= 2.11.4).
func (v Version) AtLeast(other Version) bool {
	return v.Compare(other) >= 0
}

// IsZero reports whether v is the unparsed zero value.
func (v Version) IsZero() bool {
	return v.v == nil
}
