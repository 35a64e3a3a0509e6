// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package compose computes the rewritten dependency graph induced by a set
// of selected workspace packs and returns a deterministic topological
// build order over it (§4.4). There is no existing precedent elsewhere in
// this codebase for a graph rewrite plus topological sort of this shape;
// the algorithm here is implemented directly from the rewriting rules,
// though its error handling and logging follow the same idiom as the rest
// of the pipeline.
package compose

import (
	"fmt"
	"sort"

	"qlbundle.sh/internal/qlerr"
	"qlbundle.sh/pack"
)

// Plan is a deterministic build order over the rewritten dependency graph:
// every edge u -> v in the graph has u appearing before v in Order.
type Plan struct {
	Order []*pack.ResolvedPack

	// Customizations maps each standard library pack's identity to the
	// customization packs that target it, in the order they were selected.
	Customizations map[pack.Identity][]*pack.ResolvedPack
}

// node carries the graph edges for one pack through the rewriting rules
// before the topological sort runs.
type node struct {
	rp   *pack.ResolvedPack
	deps map[pack.Identity]*pack.ResolvedPack
}

// Build applies the rewriting rules from §4.4 to the workspace selection w
// (bundlePacks supplies the rest of the vendor bundle's query packs, needed
// for rule 5) and returns a deterministic topological plan.
func Build(w []*pack.ResolvedPack, bundlePacks []*pack.ResolvedPack) (*Plan, error) {
	nodes := make(map[pack.Identity]*node)

	addNode := func(rp *pack.ResolvedPack) *node {
		if n, ok := nodes[rp.ID()]; ok {
			return n
		}

		n := &node{rp: rp, deps: make(map[pack.Identity]*pack.ResolvedPack)}
		nodes[rp.ID()] = n

		return n
	}

	targets := make(map[pack.Identity][]*pack.ResolvedPack)

	// Rule 1: customization packs lose their edge to their original target;
	// the target instead records the customization as a dependent.
	for _, rp := range w {
		n := addNode(rp)

		if rp.Kind != pack.Customization {
			for _, dep := range rp.Dependencies {
				n.deps[dep.ID()] = dep
			}

			continue
		}

		target := rp.Target()
		targets[target.ID()] = append(targets[target.ID()], rp)
	}

	// Rule 2: query packs that transitively depend on a customization pack
	// must also depend on that customization's target, so the rewritten
	// customization (with its dependency stripped) still resolves the
	// standard library at compile time. The target is appended to the query
	// pack's own resolved dependencies, not just recorded as a build-order
	// edge, so the rewriter pins it into the installed manifest.
	for _, rp := range w {
		if rp.Kind != pack.Query {
			continue
		}

		n := nodes[rp.ID()]

		for _, cust := range w {
			if cust.Kind != pack.Customization {
				continue
			}

			if !rp.TransitivelyDependsOn(cust) {
				continue
			}

			target := cust.Target()
			n.deps[target.ID()] = target

			if !dependsOn(rp, target.ID()) {
				rp.Dependencies = append(rp.Dependencies, target)
			}
		}
	}

	// Rule 4: each customized standard library pack depends on its
	// customizations, so they build first.
	for targetID, custs := range targets {
		n, ok := nodes[targetID]
		if !ok {
			// The target wasn't itself a selected workspace pack; add it so
			// rule 5 and the sort can still see it.
			n = addNode(custs[0].Target())
		}

		for _, c := range custs {
			n.deps[c.ID()] = c
		}
	}

	// Rule 5: vendor-bundle query packs that transitively depend on a
	// customized standard library must be rebuilt against it.
	for targetID := range targets {
		target := nodes[targetID].rp

		for _, bp := range bundlePacks {
			if bp.Kind != pack.Query {
				continue
			}

			if !bp.TransitivelyDependsOn(target) {
				continue
			}

			bn := addNode(bp)
			bn.deps[targetID] = target
		}
	}

	order, err := topoSort(nodes)
	if err != nil {
		return nil, err
	}

	return &Plan{Order: order, Customizations: targets}, nil
}

// topoSort runs Kahn's algorithm over nodes, breaking ties deterministically
// by (kind order, name, version) so the same input always yields the same
// order (§8 property 5).
func topoSort(nodes map[pack.Identity]*node) ([]*pack.ResolvedPack, error) {
	indegree := make(map[pack.Identity]int, len(nodes))
	dependents := make(map[pack.Identity][]pack.Identity, len(nodes))

	for id := range nodes {
		indegree[id] = 0
	}

	for id, n := range nodes {
		for depID := range n.deps {
			// A dependency outside the plan (e.g. an unmodified bundle pack)
			// is already in place and imposes no ordering constraint.
			if _, ok := nodes[depID]; !ok {
				continue
			}

			dependents[depID] = append(dependents[depID], id)
			indegree[id]++
		}
	}

	var ready []*node
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, nodes[id])
		}
	}

	order := make([]*pack.ResolvedPack, 0, len(nodes))

	for len(ready) > 0 {
		sortReady(ready)

		n := ready[0]
		ready = ready[1:]

		order = append(order, n.rp)

		for _, depID := range dependents[n.rp.ID()] {
			indegree[depID]--
			if indegree[depID] == 0 {
				ready = append(ready, nodes[depID])
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, fmt.Errorf("composition graph has a cycle: %w", qlerr.ErrInvalidBundle)
	}

	return order, nil
}

// dependsOn reports whether rp already directly depends on id, so rule 2
// does not append the same injected target twice.
func dependsOn(rp *pack.ResolvedPack, id pack.Identity) bool {
	for _, dep := range rp.Dependencies {
		if dep.ID() == id {
			return true
		}
	}

	return false
}

func sortReady(ready []*node) {
	sort.SliceStable(ready, func(i, j int) bool {
		a, b := ready[i].rp, ready[j].rp

		if a.Kind != b.Kind {
			return a.Kind.Less(b.Kind)
		}

		if a.Manifest.Name != b.Manifest.Name {
			return a.Manifest.Name < b.Manifest.Name
		}

		return a.Version().Compare(b.Version()) < 0
	})
}
