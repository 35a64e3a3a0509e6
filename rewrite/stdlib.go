// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package rewrite

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"qlbundle.sh/internal/qlerr"
	"qlbundle.sh/manifest"
	"qlbundle.sh/pack"
)

// rewriteStandardLibrary adds dependency declarations and synthesizes or
// augments the Customizations.qll aggregation module for a standard
// library pack that received one or more customization packs (§4.5).
func (rw *Rewriter) rewriteStandardLibrary(ctx context.Context, rp *pack.ResolvedPack, customizations []*pack.ResolvedPack) error {
	copyDir, err := rw.copyToScratch(rp)
	if err != nil {
		return err
	}

	copyManifest := rp.Manifest.Clone()
	if copyManifest.RawDependencies == nil {
		copyManifest.RawDependencies = map[string]string{}
	}

	for _, c := range customizations {
		copyManifest.RawDependencies[c.Manifest.Name] = c.Version().String()
		copyManifest.DependencyOrder = append(copyManifest.DependencyOrder, c.Manifest.Name)
	}

	if err := copyManifest.Save(filepath.Join(copyDir, filepath.Base(rp.Path))); err != nil {
		return fmt.Errorf("rewriting %s manifest: %w", rp.Manifest.Name, qlerr.ErrIOFailure)
	}

	if err := ensureCustomizationsModule(copyDir, rp.Manifest.PackName()); err != nil {
		return err
	}

	if err := appendCustomizationImports(copyDir, customizations); err != nil {
		return err
	}

	if err := rw.removeOriginalIfInstalled(rp); err != nil {
		return err
	}

	return rw.CLI.PackBundle(ctx, copyDir, rw.qlpacksDir(), rp.Manifest.Library)
}

// ensureCustomizationsModule synthesizes Customizations.qll and wires it
// into the language's top-level module if it does not already exist
// (§4.5 step 3).
func ensureCustomizationsModule(copyDir, packName string) error {
	customizationsPath := filepath.Join(copyDir, "Customizations.qll")
	if _, err := os.Stat(customizationsPath); err == nil {
		return nil
	}

	language := strings.TrimSuffix(packName, "-all")

	languageModulePath := filepath.Join(copyDir, language+".qll")

	if err := insertCustomizationsImport(languageModulePath); err != nil {
		return err
	}

	return os.WriteFile(customizationsPath, []byte("import "+language+"\n"), 0o644)
}

// insertCustomizationsImport inserts "import Customizations" immediately
// before the first "import " line of the language's top-level module.
func insertCustomizationsImport(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot customize: language module not found at %s: %w", path, qlerr.ErrInvalidPack)
	}

	var lines []string
	inserted := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()

		if !inserted && strings.HasPrefix(line, "import ") {
			lines = append(lines, "import Customizations")
			inserted = true
		}

		lines = append(lines, line)
	}
	f.Close()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, qlerr.ErrIOFailure)
	}

	if !inserted {
		return fmt.Errorf("cannot customize: %s has no import statement: %w", path, qlerr.ErrInvalidPack)
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

// appendCustomizationImports appends one "import <module>.Customizations"
// line per customization pack to the standard library's Customizations.qll
// (§4.5 step 4).
func appendCustomizationImports(copyDir string, customizations []*pack.ResolvedPack) error {
	path := filepath.Join(copyDir, "Customizations.qll")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, qlerr.ErrIOFailure)
	}
	defer f.Close()

	for _, c := range customizations {
		line := fmt.Sprintf("import %s.Customizations\n", manifest.ModuleName(c.Manifest.Name))
		if _, err := f.WriteString(line); err != nil {
			return fmt.Errorf("writing %s: %w", path, qlerr.ErrIOFailure)
		}
	}

	return nil
}
