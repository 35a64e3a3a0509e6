// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package rewrite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"qlbundle.sh/internal/qlerr"
	"qlbundle.sh/pack"
)

// rewriteStandardQuery cleans stale lock files, caches, and precompiled
// artifacts from a copy of a codeql-scope query pack, removes the
// installed original, and recreates it against the fully composed bundle
// (§4.5).
func (rw *Rewriter) rewriteStandardQuery(ctx context.Context, rp *pack.ResolvedPack) error {
	copyDir, err := rw.copyToScratch(rp)
	if err != nil {
		return err
	}

	if err := cleanQueryArtifacts(copyDir, rw.SupportsQlx); err != nil {
		return err
	}

	if err := rw.removeOriginalIfInstalled(rp); err != nil {
		return err
	}

	return rw.CLI.PackCreate(ctx, copyDir, rw.qlpacksDir(), rp.Manifest.Library, rw.SupportsQlx, rw.BundleRoot)
}

// rewriteWorkspaceQuery pins a non-standard-scope query pack's declared
// dependencies to the exact versions resolved against the composed bundle,
// then recreates it (§4.5).
func (rw *Rewriter) rewriteWorkspaceQuery(ctx context.Context, rp *pack.ResolvedPack) error {
	copyDir, err := rw.copyToScratch(rp)
	if err != nil {
		return err
	}

	copyManifest := rp.Manifest.Clone()
	pinned := make(map[string]string, len(rp.Dependencies))
	order := make([]string, 0, len(rp.Dependencies))

	for _, dep := range rp.Dependencies {
		pinned[dep.Manifest.Name] = dep.Version().String()
		order = append(order, dep.Manifest.Name)
	}

	copyManifest.RawDependencies = pinned
	copyManifest.DependencyOrder = order

	if err := copyManifest.Save(filepath.Join(copyDir, filepath.Base(rp.Path))); err != nil {
		return fmt.Errorf("rewriting %s manifest: %w", rp.Manifest.Name, qlerr.ErrIOFailure)
	}

	return rw.CLI.PackCreate(ctx, copyDir, rw.qlpacksDir(), rp.Manifest.Library, rw.SupportsQlx)
}

// cleanQueryArtifacts removes the lock file, dependency cache, compilation
// cache, and (if the CLI supports qlx) precompiled query caches from a
// query pack copy before it is recreated (§4.5 step 1).
func cleanQueryArtifacts(copyDir string, supportsQlx bool) error {
	for _, name := range []string{"codeql-pack.lock.yml", ".codeql", ".cache"} {
		if err := os.RemoveAll(filepath.Join(copyDir, name)); err != nil {
			return fmt.Errorf("cleaning %s: %w", name, qlerr.ErrIOFailure)
		}
	}

	if !supportsQlx {
		return nil
	}

	return filepath.Walk(copyDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || filepath.Ext(path) != ".qlx" {
			return nil
		}

		return os.Remove(path)
	})
}
