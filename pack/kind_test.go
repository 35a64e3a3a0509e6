// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package pack_test

import (
	"os"
	"path/filepath"
	"testing"

	"qlbundle.sh/manifest"
	"qlbundle.sh/pack"
)

func TestClassifyQuery(t *testing.T) {
	m, err := manifest.Parse([]byte("name: acme/my-queries\nversion: 1.0.0\n"))
	if err != nil {
		t.Fatal("Parse:", err)
	}

	if got := pack.Classify(m, t.TempDir()); got != pack.Query {
		t.Errorf("Classify() = %s, want %s", got, pack.Query)
	}
}

func TestClassifyLibrary(t *testing.T) {
	dir := t.TempDir()

	m, err := manifest.Parse([]byte("name: acme/my-lib\nversion: 1.0.0\nlibrary: true\n"))
	if err != nil {
		t.Fatal("Parse:", err)
	}

	if got := pack.Classify(m, dir); got != pack.Library {
		t.Errorf("Classify() = %s, want %s", got, pack.Library)
	}
}

func TestClassifyCustomization(t *testing.T) {
	dir := t.TempDir()

	m, err := manifest.Parse([]byte("name: acme/cpp-queries-customizations\nversion: 1.0.0\nlibrary: true\n"))
	if err != nil {
		t.Fatal("Parse:", err)
	}

	customDir := filepath.Join(dir, manifest.CustomizationsDir(m.Name))
	if err := os.MkdirAll(customDir, 0o755); err != nil {
		t.Fatal("MkdirAll:", err)
	}

	if err := os.WriteFile(filepath.Join(customDir, "Customizations.qll"), []byte("import cpp\n"), 0o644); err != nil {
		t.Fatal("WriteFile:", err)
	}

	if got := pack.Classify(m, dir); got != pack.Customization {
		t.Errorf("Classify() = %s, want %s", got, pack.Customization)
	}
}

func TestKindTieBreakOrder(t *testing.T) {
	if !pack.Customization.Less(pack.Library) {
		t.Error("expected Customization < Library")
	}

	if !pack.Library.Less(pack.Query) {
		t.Error("expected Library < Query")
	}

	if pack.Query.Less(pack.Customization) {
		t.Error("did not expect Query < Customization")
	}
}
