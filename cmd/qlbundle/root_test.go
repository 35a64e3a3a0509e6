// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"qlbundle.sh/bundle"
	"qlbundle.sh/codeqlcli"
	"qlbundle.sh/internal/qlerr"
	"qlbundle.sh/manifest"
	"qlbundle.sh/pack"
)

func TestParsePlatformsAcceptsKnownValues(t *testing.T) {
	got, err := parsePlatforms([]string{"linux64", "osx64"})
	if err != nil {
		t.Fatal("parsePlatforms:", err)
	}

	want := []bundle.Platform{bundle.Linux64, bundle.OSX64}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("parsePlatforms() = %v, want %v", got, want)
	}
}

func TestParsePlatformsEmptyMeansSingleArchive(t *testing.T) {
	got, err := parsePlatforms(nil)
	if err != nil {
		t.Fatal("parsePlatforms:", err)
	}

	if len(got) != 0 {
		t.Errorf("parsePlatforms(nil) = %v, want empty", got)
	}
}

func TestParsePlatformsRejectsUnknownValue(t *testing.T) {
	_, err := parsePlatforms([]string{"amiga"})
	if !qlerr.IsConfigError(err) {
		t.Fatalf("parsePlatforms() error = %v, want ErrConfigError", err)
	}
}

func testPack(t *testing.T, name string) pack.Pack {
	t.Helper()

	m, err := manifest.Parse([]byte("name: " + name + "\nversion: 1.0.0\n"))
	if err != nil {
		t.Fatal("Parse:", err)
	}

	return pack.New(m, "/ws/"+name+"/qlpack.yml")
}

func TestFilterPacksEmptyNamesReturnsAll(t *testing.T) {
	packs := []pack.Pack{testPack(t, "acme/a"), testPack(t, "acme/b")}

	got, err := filterPacks(packs, nil)
	if err != nil {
		t.Fatal("filterPacks:", err)
	}

	if len(got) != 2 {
		t.Errorf("filterPacks(nil) = %v, want both packs", got)
	}
}

func TestFilterPacksSelectsNamedSubset(t *testing.T) {
	packs := []pack.Pack{testPack(t, "acme/a"), testPack(t, "acme/b")}

	got, err := filterPacks(packs, []string{"acme/b"})
	if err != nil {
		t.Fatal("filterPacks:", err)
	}

	if len(got) != 1 || got[0].Manifest.Name != "acme/b" {
		t.Errorf("filterPacks() = %v, want only acme/b", got)
	}
}

func TestFilterPacksUnknownNameFails(t *testing.T) {
	packs := []pack.Pack{testPack(t, "acme/a")}

	_, err := filterPacks(packs, []string{"acme/missing"})
	if !qlerr.IsConfigError(err) {
		t.Fatalf("filterPacks() error = %v, want ErrConfigError", err)
	}
}

func writeWorkspacePack(t *testing.T, workspace, name string) string {
	t.Helper()

	dir := filepath.Join(workspace, filepath.Base(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal("MkdirAll:", err)
	}

	manifestPath := filepath.Join(dir, "qlpack.yml")
	if err := os.WriteFile(manifestPath, []byte("name: "+name+"\nversion: 1.0.0\n"), 0o644); err != nil {
		t.Fatal("WriteFile:", err)
	}

	return manifestPath
}

func TestBuildPlanRejectsUnscopedWorkspacePack(t *testing.T) {
	workspace := t.TempDir()
	manifestPath := writeWorkspacePack(t, workspace, "bare-pack")

	b := &bundle.Bundle{
		CLI: &codeqlcli.Fake{
			FakePacks: []codeqlcli.PackInfo{{Name: "bare-pack", Path: manifestPath}},
		},
	}

	_, _, err := buildPlan(context.Background(), b, workspace, nil)
	if !qlerr.IsInvalidPack(err) {
		t.Fatalf("buildPlan() error = %v, want ErrInvalidPack", err)
	}
}

func TestBuildPlanAcceptsScopedWorkspacePack(t *testing.T) {
	workspace := t.TempDir()
	manifestPath := writeWorkspacePack(t, workspace, "acme/queries")

	b := &bundle.Bundle{
		CLI: &codeqlcli.Fake{
			FakePacks: []codeqlcli.PackInfo{{Name: "acme/queries", Path: manifestPath}},
		},
	}

	plan, selected, err := buildPlan(context.Background(), b, workspace, nil)
	if err != nil {
		t.Fatal("buildPlan:", err)
	}

	if len(selected) != 1 || selected[0].Manifest.Name != "acme/queries" {
		t.Errorf("selected = %+v, want [acme/queries]", selected)
	}

	if len(plan.Order) != 1 {
		t.Errorf("plan.Order = %+v, want 1 entry", plan.Order)
	}
}
