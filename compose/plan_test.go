// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package compose_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qlbundle.sh/compose"
	"qlbundle.sh/manifest"
	"qlbundle.sh/pack"
)

func resolvedPack(t *testing.T, name, ver string, library bool, kind pack.Kind, deps ...*pack.ResolvedPack) *pack.ResolvedPack {
	t.Helper()

	yaml := "name: " + name + "\nversion: " + ver + "\n"
	if library {
		yaml += "library: true\n"
	}

	m, err := manifest.Parse([]byte(yaml))
	if err != nil {
		t.Fatal("Parse:", err)
	}

	p := pack.New(m, "/packs/"+name+"/"+ver+"/qlpack.yml")

	return &pack.ResolvedPack{Pack: p, Kind: kind, Dependencies: deps}
}

func indexOf(order []*pack.ResolvedPack, name string) int {
	for i, rp := range order {
		if rp.Manifest.Name == name {
			return i
		}
	}

	return -1
}

func TestBuildOrdersCustomizationBeforeTarget(t *testing.T) {
	stdlib := resolvedPack(t, "codeql/cpp-all", "0.5.0", true, pack.Library)
	cust := resolvedPack(t, "acme/cpp-queries-customizations", "1.0.0", true, pack.Customization, stdlib)

	plan, err := compose.Build([]*pack.ResolvedPack{cust}, nil)
	if err != nil {
		t.Fatal("Build:", err)
	}

	custIdx := indexOf(plan.Order, "acme/cpp-queries-customizations")
	stdlibIdx := indexOf(plan.Order, "codeql/cpp-all")

	if custIdx == -1 || stdlibIdx == -1 {
		t.Fatalf("missing pack in order: %+v", plan.Order)
	}

	if custIdx >= stdlibIdx {
		t.Errorf("customization at %d, stdlib at %d; want customization first", custIdx, stdlibIdx)
	}

	custs := plan.Customizations[stdlib.ID()]
	if len(custs) != 1 || custs[0].Manifest.Name != "acme/cpp-queries-customizations" {
		t.Errorf("Customizations[stdlib] = %+v", custs)
	}
}

func TestBuildPullsInTargetForDependentQuery(t *testing.T) {
	stdlib := resolvedPack(t, "codeql/java-all", "0.4.0", true, pack.Library)
	cust := resolvedPack(t, "acme/java-customizations", "1.0.0", true, pack.Customization, stdlib)
	query := resolvedPack(t, "acme/java-queries", "1.0.0", false, pack.Query, cust)

	plan, err := compose.Build([]*pack.ResolvedPack{cust, query}, nil)
	if err != nil {
		t.Fatal("Build:", err)
	}

	queryIdx := indexOf(plan.Order, "acme/java-queries")
	stdlibIdx := indexOf(plan.Order, "codeql/java-all")

	if stdlibIdx >= queryIdx {
		t.Errorf("stdlib at %d, query at %d; want stdlib before query", stdlibIdx, queryIdx)
	}
}

func TestBuildPullsInTargetAsDependencyForDependentQuery(t *testing.T) {
	stdlib := resolvedPack(t, "codeql/java-all", "0.4.0", true, pack.Library)
	cust := resolvedPack(t, "acme/java-customizations", "1.0.0", true, pack.Customization, stdlib)
	query := resolvedPack(t, "acme/java-queries", "1.0.0", false, pack.Query, cust)

	_, err := compose.Build([]*pack.ResolvedPack{cust, query}, nil)
	require.NoError(t, err)

	var names []string
	for _, dep := range query.Dependencies {
		names = append(names, dep.Manifest.Name)
	}

	assert.Contains(t, names, "codeql/java-all",
		"query pack must gain the customization's stdlib target as a direct dependency so the rewriter pins it into the installed manifest")
	assert.Contains(t, names, "acme/java-customizations")
}

func TestBuildDoesNotDuplicateInjectedTarget(t *testing.T) {
	stdlib := resolvedPack(t, "codeql/java-all", "0.4.0", true, pack.Library)
	cust := resolvedPack(t, "acme/java-customizations", "1.0.0", true, pack.Customization, stdlib)
	query := resolvedPack(t, "acme/java-queries", "1.0.0", false, pack.Query, cust, stdlib)

	_, err := compose.Build([]*pack.ResolvedPack{cust, query}, nil)
	require.NoError(t, err)

	count := 0
	for _, dep := range query.Dependencies {
		if dep.Manifest.Name == "codeql/java-all" {
			count++
		}
	}

	assert.Equal(t, 1, count, "injected target must not be duplicated when already a direct dependency")
}

func TestBuildRebuildsBundleQueryPackDependingOnCustomizedStdlib(t *testing.T) {
	stdlib := resolvedPack(t, "codeql/cpp-all", "0.5.0", true, pack.Library)
	cust := resolvedPack(t, "acme/cpp-customizations", "1.0.0", true, pack.Customization, stdlib)
	bundleQuery := resolvedPack(t, "codeql/cpp-queries", "0.5.0", false, pack.Query, stdlib)

	plan, err := compose.Build([]*pack.ResolvedPack{cust}, []*pack.ResolvedPack{bundleQuery})
	if err != nil {
		t.Fatal("Build:", err)
	}

	stdlibIdx := indexOf(plan.Order, "codeql/cpp-all")
	bundleQueryIdx := indexOf(plan.Order, "codeql/cpp-queries")

	if bundleQueryIdx == -1 {
		t.Fatalf("bundle query pack missing from plan: %+v", plan.Order)
	}

	if stdlibIdx >= bundleQueryIdx {
		t.Errorf("stdlib at %d, bundle query at %d; want stdlib first", stdlibIdx, bundleQueryIdx)
	}
}

func TestBuildDeterministicTieBreak(t *testing.T) {
	a := resolvedPack(t, "acme/a-lib", "1.0.0", true, pack.Library)
	b := resolvedPack(t, "acme/b-lib", "1.0.0", true, pack.Library)
	q := resolvedPack(t, "acme/queries", "1.0.0", false, pack.Query)

	plan1, err := compose.Build([]*pack.ResolvedPack{q, b, a}, nil)
	if err != nil {
		t.Fatal("Build:", err)
	}

	plan2, err := compose.Build([]*pack.ResolvedPack{a, q, b}, nil)
	if err != nil {
		t.Fatal("Build:", err)
	}

	if len(plan1.Order) != len(plan2.Order) {
		t.Fatalf("order length mismatch: %d vs %d", len(plan1.Order), len(plan2.Order))
	}

	for i := range plan1.Order {
		if plan1.Order[i].Manifest.Name != plan2.Order[i].Manifest.Name {
			t.Errorf("order[%d] = %s vs %s, want deterministic match", i, plan1.Order[i].Manifest.Name, plan2.Order[i].Manifest.Name)
		}
	}

	// No dependency edges among a, b, q: alphabetical tie-break within kind,
	// and library kind sorts before query.
	if plan1.Order[0].Manifest.Name != "acme/a-lib" || plan1.Order[1].Manifest.Name != "acme/b-lib" || plan1.Order[2].Manifest.Name != "acme/queries" {
		names := []string{plan1.Order[0].Manifest.Name, plan1.Order[1].Manifest.Name, plan1.Order[2].Manifest.Name}
		t.Errorf("order = %v, want [acme/a-lib acme/b-lib acme/queries]", names)
	}
}

func TestBuildKindTieBreakOrder(t *testing.T) {
	tests := []struct {
		name        string
		submitOrder []pack.Kind
		wantFirst   pack.Kind
		wantSecond  pack.Kind
	}{
		{
			name:        "library before query regardless of submission order",
			submitOrder: []pack.Kind{pack.Query, pack.Library},
			wantFirst:   pack.Library,
			wantSecond:  pack.Query,
		},
		{
			name:        "library before query, already in kind order",
			submitOrder: []pack.Kind{pack.Library, pack.Query},
			wantFirst:   pack.Library,
			wantSecond:  pack.Query,
		},
	}

	names := map[pack.Kind]string{pack.Query: "acme/q", pack.Library: "acme/l"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w []*pack.ResolvedPack
			for _, k := range tt.submitOrder {
				w = append(w, resolvedPack(t, names[k], "1.0.0", k == pack.Library, k))
			}

			plan, err := compose.Build(w, nil)
			require.NoError(t, err)
			require.Len(t, plan.Order, 2)

			assert.Equal(t, names[tt.wantFirst], plan.Order[0].Manifest.Name)
			assert.Equal(t, names[tt.wantSecond], plan.Order[1].Manifest.Name)
		})
	}
}

func TestBuildCycleFails(t *testing.T) {
	a := resolvedPack(t, "acme/a", "1.0.0", true, pack.Library)
	b := resolvedPack(t, "acme/b", "1.0.0", true, pack.Library)
	a.Dependencies = []*pack.ResolvedPack{b}
	b.Dependencies = []*pack.ResolvedPack{a}

	_, err := compose.Build([]*pack.ResolvedPack{a, b}, nil)
	if err == nil {
		t.Fatal("Build() expected cycle error, got nil")
	}
}
