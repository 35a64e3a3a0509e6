// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package resolver builds a fully-resolved dependency graph from a set of
// pack manifests: it chooses candidate versions by semver match, detects
// cycles, and classifies each pack. The candidate-selection tie-break
// (highest version, bundle preferred over workspace) is made explicit here
// so two resolver runs over the same input always produce the same graph
// (§4.2, §8 property 5).
package resolver

import (
	"fmt"
	"sort"

	"qlbundle.sh/manifest"
	"qlbundle.sh/pack"

	"qlbundle.sh/internal/qlerr"
)

// Origin distinguishes where a candidate pack came from, used only to break
// ties between two identically-versioned candidates (invariant 3 says this
// should not happen within one universe, but a deterministic tie-break is
// required regardless, per §9's open question).
type Origin int

const (
	// FromWorkspace marks a pack supplied by the user.
	FromWorkspace Origin = iota
	// FromBundle marks a pack already present in the vendor bundle.
	FromBundle
)

// Candidate is a Pack annotated with where it came from, for tie-breaking.
type Candidate struct {
	pack.Pack
	Origin Origin
}

// Resolver resolves packs against a shared candidate universe, memoizing
// resolutions by pack identity so repeated calls for the same pack are
// cheap and, combined with the deterministic tie-break, deterministic.
type Resolver struct {
	candidates map[string][]Candidate
	resolved   map[pack.Identity]*pack.ResolvedPack
	inflight   map[pack.Identity]bool
}

// New builds a Resolver over the candidate universe formed by bundlePacks
// (already-resolved, acting as a seed per §4.2 step 2) and workspacePacks
// (not yet resolved).
func New(bundlePacks []*pack.ResolvedPack, workspacePacks []pack.Pack) (*Resolver, error) {
	r := &Resolver{
		candidates: make(map[string][]Candidate),
		resolved:   make(map[pack.Identity]*pack.ResolvedPack),
		inflight:   make(map[pack.Identity]bool),
	}

	for _, rp := range bundlePacks {
		r.resolved[rp.ID()] = rp
		r.addCandidate(rp.Pack, FromBundle)
	}

	for _, p := range workspacePacks {
		r.addCandidate(p, FromWorkspace)
	}

	for name, cands := range r.candidates {
		r.candidates[name] = sortCandidates(cands)
	}

	return r, nil
}

func (r *Resolver) addCandidate(p pack.Pack, origin Origin) {
	r.candidates[p.Manifest.Name] = append(r.candidates[p.Manifest.Name], Candidate{Pack: p, Origin: origin})
}

// sortCandidates orders candidates by (version descending, bundle preferred
// over workspace) so the first matching candidate, which resolveDependency
// selects, is reproducible regardless of input ordering (§4.2 step 3).
func sortCandidates(cands []Candidate) []Candidate {
	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)

	sort.SliceStable(sorted, func(i, j int) bool {
		vi, erri := sorted[i].Manifest.Version()
		vj, errj := sorted[j].Manifest.Version()

		switch {
		case erri == nil && errj == nil && !vi.Equal(vj):
			return vi.Compare(vj) > 0
		case sorted[i].Origin != sorted[j].Origin:
			return sorted[i].Origin == FromBundle
		default:
			return false
		}
	})

	return sorted
}

// Resolve resolves p against the candidate universe, returning the memoized
// result on repeat calls.
func (r *Resolver) Resolve(p pack.Pack) (*pack.ResolvedPack, error) {
	if existing, ok := r.resolved[p.ID()]; ok {
		return existing, nil
	}

	return r.resolve(p, p.ID())
}

func (r *Resolver) resolve(p pack.Pack, root pack.Identity) (*pack.ResolvedPack, error) {
	if existing, ok := r.resolved[p.ID()]; ok {
		return existing, nil
	}

	if r.inflight[p.ID()] {
		return nil, fmt.Errorf("pack %s: transitive self-dependency: %w", p.Manifest.Name, qlerr.ErrResolverFailure)
	}
	r.inflight[p.ID()] = true
	defer delete(r.inflight, p.ID())

	deps, err := p.Manifest.Dependencies()
	if err != nil {
		return nil, err
	}

	rp := &pack.ResolvedPack{
		Pack: p,
		Kind: pack.Classify(p.Manifest, p.Dir()),
	}

	for _, dep := range deps {
		resolvedDep, err := r.resolveDependency(dep, root)
		if err != nil {
			return nil, err
		}

		rp.Dependencies = append(rp.Dependencies, resolvedDep)
	}

	if err := validateInvariants(rp); err != nil {
		return nil, err
	}

	r.resolved[p.ID()] = rp

	return rp, nil
}

func (r *Resolver) resolveDependency(dep manifest.Dependency, root pack.Identity) (*pack.ResolvedPack, error) {
	cands, ok := r.candidates[dep.Name]
	if !ok {
		return nil, fmt.Errorf("unresolved dependency %s %s: %w", dep.Name, dep.Constraint, qlerr.ErrResolverFailure)
	}

	for _, c := range cands {
		v, err := c.Manifest.Version()
		if err != nil {
			continue
		}

		if !dep.Constraint.Matches(v) {
			continue
		}

		if c.ID() == root {
			return nil, fmt.Errorf("pack %s: transitive self-dependency: %w", c.Manifest.Name, qlerr.ErrResolverFailure)
		}

		return r.resolve(c.Pack, root)
	}

	return nil, fmt.Errorf("unresolved dependency %s %s: %w", dep.Name, dep.Constraint, qlerr.ErrResolverFailure)
}

// validateInvariants enforces the invariants from §3 that the resolver (as
// opposed to the planner or rewriter) is positioned to check immediately
// after a pack's dependency edges are known.
func validateInvariants(rp *pack.ResolvedPack) error {
	if rp.Kind == pack.Customization {
		if len(rp.Dependencies) != 1 {
			return fmt.Errorf("customization pack %s must declare exactly one dependency, has %d: %w",
				rp.Manifest.Name, len(rp.Dependencies), qlerr.ErrInvalidPack)
		}

		target := rp.Dependencies[0]
		if target.Kind != pack.Library || !target.IsStandardLibrary() {
			return fmt.Errorf("customization pack %s must depend on a codeql standard library, got %s (%s): %w",
				rp.Manifest.Name, target.Manifest.Name, target.Kind, qlerr.ErrInvalidPack)
		}
	}

	return nil
}

// ResolveAll resolves every pack in ps, returning them in the same order.
func (r *Resolver) ResolveAll(ps []pack.Pack) ([]*pack.ResolvedPack, error) {
	out := make([]*pack.ResolvedPack, 0, len(ps))

	for _, p := range ps {
		rp, err := r.Resolve(p)
		if err != nil {
			return nil, err
		}

		out = append(out, rp)
	}

	return out, nil
}
