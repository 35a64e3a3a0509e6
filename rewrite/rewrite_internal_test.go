// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package rewrite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qlbundle.sh/codeqlcli"
	"qlbundle.sh/manifest"
	"qlbundle.sh/pack"
)

func writeWorkspacePack(t *testing.T, root, relDir, yaml string) pack.Pack {
	t.Helper()

	dir := filepath.Join(root, relDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal("MkdirAll:", err)
	}

	manifestPath := filepath.Join(dir, "qlpack.yml")
	if err := os.WriteFile(manifestPath, []byte(yaml), 0o644); err != nil {
		t.Fatal("WriteFile:", err)
	}

	p, err := pack.Load(manifestPath)
	if err != nil {
		t.Fatal("Load:", err)
	}

	return p
}

func TestRewriteCustomizationStripsDependencies(t *testing.T) {
	workspaceRoot := t.TempDir()
	bundleRoot := t.TempDir()
	scratchRoot := t.TempDir()

	stdlibPack := writeWorkspacePack(t, bundleRoot, filepath.Join("qlpacks", "codeql", "cpp-all", "0.5.0"),
		"name: codeql/cpp-all\nversion: 0.5.0\nlibrary: true\n")
	stdlibRP := &pack.ResolvedPack{Pack: stdlibPack, Kind: pack.Library}

	custPack := writeWorkspacePack(t, workspaceRoot, "acme/cpp-queries-customizations",
		"name: acme/cpp-queries-customizations\nversion: 1.0.0\nlibrary: true\ndependencies:\n  codeql/cpp-all: \"^0.4.0\"\n")
	custRP := &pack.ResolvedPack{Pack: custPack, Kind: pack.Customization, Dependencies: []*pack.ResolvedPack{stdlibRP}}

	fake := &codeqlcli.Fake{}
	rw := New(fake, bundleRoot, scratchRoot, false)

	if err := rw.rewriteCustomization(context.Background(), custRP); err != nil {
		t.Fatal("rewriteCustomization:", err)
	}

	if len(fake.Bundled) != 1 {
		t.Fatalf("Bundled = %v, want one entry", fake.Bundled)
	}

	installedManifest := filepath.Join(bundleRoot, "qlpacks", "acme", "cpp-queries-customizations", "1.0.0", "qlpack.yml")
	m, err := manifest.Load(installedManifest)
	if err != nil {
		t.Fatal("Load installed manifest:", err)
	}

	if len(m.RawDependencies) != 0 {
		t.Errorf("installed manifest dependencies = %v, want empty", m.RawDependencies)
	}
}

func TestEnsureCustomizationsModuleSynthesizesFromScratch(t *testing.T) {
	copyDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(copyDir, "cpp.qll"), []byte("import semmle.code.cpp.Type\nimport semmle.code.cpp.Function\n"), 0o644); err != nil {
		t.Fatal("WriteFile:", err)
	}

	if err := ensureCustomizationsModule(copyDir, "cpp-all"); err != nil {
		t.Fatal("ensureCustomizationsModule:", err)
	}

	langContent, err := os.ReadFile(filepath.Join(copyDir, "cpp.qll"))
	if err != nil {
		t.Fatal("ReadFile:", err)
	}

	if !strings.HasPrefix(string(langContent), "import Customizations\n") {
		t.Errorf("cpp.qll = %q, want import Customizations first", langContent)
	}

	customizations, err := os.ReadFile(filepath.Join(copyDir, "Customizations.qll"))
	if err != nil {
		t.Fatal("ReadFile Customizations.qll:", err)
	}

	if string(customizations) != "import cpp\n" {
		t.Errorf("Customizations.qll = %q, want %q", customizations, "import cpp\n")
	}
}

func TestEnsureCustomizationsModuleSkipsWhenExisting(t *testing.T) {
	copyDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(copyDir, "Customizations.qll"), []byte("import cpp\nimport existing.Customizations\n"), 0o644); err != nil {
		t.Fatal("WriteFile:", err)
	}

	if err := ensureCustomizationsModule(copyDir, "cpp-all"); err != nil {
		t.Fatal("ensureCustomizationsModule:", err)
	}

	content, err := os.ReadFile(filepath.Join(copyDir, "Customizations.qll"))
	if err != nil {
		t.Fatal("ReadFile:", err)
	}

	if string(content) != "import cpp\nimport existing.Customizations\n" {
		t.Errorf("Customizations.qll was modified: %q", content)
	}
}

func TestEnsureCustomizationsModuleFailsWithoutLanguageModule(t *testing.T) {
	copyDir := t.TempDir()

	err := ensureCustomizationsModule(copyDir, "cpp-all")
	if err == nil {
		t.Fatal("expected error for missing language module")
	}
}

func TestAppendCustomizationImports(t *testing.T) {
	copyDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(copyDir, "Customizations.qll"), []byte("import cpp\n"), 0o644); err != nil {
		t.Fatal("WriteFile:", err)
	}

	m, err := manifest.Parse([]byte("name: acme/cpp-queries-customizations\nversion: 1.0.0\nlibrary: true\n"))
	if err != nil {
		t.Fatal("Parse:", err)
	}

	cust := &pack.ResolvedPack{Pack: pack.New(m, filepath.Join(copyDir, "qlpack.yml")), Kind: pack.Customization}

	if err := appendCustomizationImports(copyDir, []*pack.ResolvedPack{cust}); err != nil {
		t.Fatal("appendCustomizationImports:", err)
	}

	content, err := os.ReadFile(filepath.Join(copyDir, "Customizations.qll"))
	if err != nil {
		t.Fatal("ReadFile:", err)
	}

	want := "import cpp\nimport acme.cpp_queries_customizations.Customizations\n"
	if string(content) != want {
		t.Errorf("Customizations.qll = %q, want %q", content, want)
	}
}

func TestCleanQueryArtifactsRemovesQlxWhenSupported(t *testing.T) {
	copyDir := t.TempDir()

	for _, name := range []string{"codeql-pack.lock.yml", "query.qlx"} {
		if err := os.WriteFile(filepath.Join(copyDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal("WriteFile:", err)
		}
	}

	if err := os.MkdirAll(filepath.Join(copyDir, ".codeql"), 0o755); err != nil {
		t.Fatal("MkdirAll:", err)
	}

	if err := cleanQueryArtifacts(copyDir, true); err != nil {
		t.Fatal("cleanQueryArtifacts:", err)
	}

	for _, name := range []string{"codeql-pack.lock.yml", "query.qlx", ".codeql"} {
		if _, err := os.Stat(filepath.Join(copyDir, name)); !os.IsNotExist(err) {
			t.Errorf("expected %s removed, stat err = %v", name, err)
		}
	}
}

func TestCleanQueryArtifactsKeepsQlxWhenUnsupported(t *testing.T) {
	copyDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(copyDir, "query.qlx"), []byte("x"), 0o644); err != nil {
		t.Fatal("WriteFile:", err)
	}

	if err := cleanQueryArtifacts(copyDir, false); err != nil {
		t.Fatal("cleanQueryArtifacts:", err)
	}

	if _, err := os.Stat(filepath.Join(copyDir, "query.qlx")); err != nil {
		t.Errorf("expected query.qlx kept, stat err = %v", err)
	}
}
