// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package pack

import "qlbundle.sh/version"

// ResolvedPack is a Pack bound to its classified Kind and the ordered list
// of ResolvedPacks each of its declared dependencies resolved to.
// Dependencies preserve declaration order (invariant 5): for a
// Customization pack, Dependencies[0] is always its target standard
// library.
type ResolvedPack struct {
	Pack
	Kind         Kind
	Dependencies []*ResolvedPack
}

// Version parses and returns the resolved pack's version. A manifest whose
// version does not parse yields the zero Version.
func (rp *ResolvedPack) Version() version.Version {
	v, err := rp.Manifest.Version()
	if err != nil {
		return version.Version{}
	}

	return v
}

// Target returns the standard library a Customization pack's first
// dependency resolved to. Callers must only call this on Customization
// packs; it panics otherwise, since the resolver guarantees the invariant.
func (rp *ResolvedPack) Target() *ResolvedPack {
	if rp.Kind != Customization {
		panic("pack: Target called on a non-customization pack")
	}

	if len(rp.Dependencies) == 0 {
		panic("pack: customization pack resolved with no dependencies")
	}

	return rp.Dependencies[0]
}

// IsStandardLibrary reports whether rp is a library pack in the "codeql"
// scope whose pack-name ends in "-all" — the definition of a standard
// library pack.
func (rp *ResolvedPack) IsStandardLibrary() bool {
	if rp.Kind != Library {
		return false
	}

	if rp.Manifest.Scope() != "codeql" {
		return false
	}

	name := rp.Manifest.PackName()
	return len(name) > len("-all") && name[len(name)-len("-all"):] == "-all"
}

// TransitivelyDependsOn reports whether rp's dependency subtree (excluding
// itself) contains target, by path identity.
func (rp *ResolvedPack) TransitivelyDependsOn(target *ResolvedPack) bool {
	seen := make(map[Identity]bool)
	return rp.transitivelyDependsOn(target.ID(), seen)
}

func (rp *ResolvedPack) transitivelyDependsOn(targetID Identity, seen map[Identity]bool) bool {
	for _, dep := range rp.Dependencies {
		if seen[dep.ID()] {
			continue
		}
		seen[dep.ID()] = true

		if dep.ID() == targetID {
			return true
		}

		if dep.transitivelyDependsOn(targetID, seen) {
			return true
		}
	}

	return false
}
