// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Constraint is an npm-style version range expression, e.g. "^1.2.0" or
// ">=1.0.0 <2.0.0".
type Constraint struct {
	raw string
	c   *semver.Constraints
}

// ParseConstraint parses an npm-style constraint expression.
func ParseConstraint(s string) (Constraint, error) {
	c, err := semver.NewConstraint(s)
	if err != nil {
		return Constraint{}, fmt.Errorf("could not parse constraint %q: %w", s, err)
	}

	return Constraint{raw: s, c: c}, nil
}

// Matches reports whether v satisfies the constraint.
func (c Constraint) Matches(v Version) bool {
	if c.c == nil || v.v == nil {
		return false
	}

	return c.c.Check(v.v)
}

// String returns the original constraint expression.
func (c Constraint) String() string {
	return c.raw
}
