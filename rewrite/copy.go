// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package rewrite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"qlbundle.sh/internal/fsutil"
	"qlbundle.sh/internal/qlerr"
	"qlbundle.sh/pack"
)

// scratchCopyDir is the temp staging location for a rewritten pack copy,
// namespaced to avoid colliding with the bundle's own qlpacks tree (§4.5).
// Every pack reaching the rewriter has already passed the scope check
// (invariant 2), so Scope() is never empty here.
func (rw *Rewriter) scratchCopyDir(rp *pack.ResolvedPack) string {
	return filepath.Join(rw.ScratchRoot, "temp", rp.Manifest.Scope(), rp.Manifest.PackName(), rp.Version().String())
}

// copyToScratch copies rp's pack directory into its scratch staging
// location and returns that location.
func (rw *Rewriter) copyToScratch(rp *pack.ResolvedPack) (string, error) {
	dst := rw.scratchCopyDir(rp)

	if err := os.RemoveAll(dst); err != nil {
		return "", fmt.Errorf("clearing scratch copy of %s: %w", rp.Manifest.Name, qlerr.ErrIOFailure)
	}

	if err := fsutil.CopyTree(rp.Dir(), dst); err != nil {
		return "", fmt.Errorf("copying %s into scratch: %w", rp.Manifest.Name, qlerr.ErrIOFailure)
	}

	return dst, nil
}

// removeOriginalIfInstalled deletes the <scope>/<pack-name> tree (one level
// above the version directory) from the bundle if rp currently lives inside
// it, so the recreated copy replaces it cleanly (§4.5 steps 5, 2).
func (rw *Rewriter) removeOriginalIfInstalled(rp *pack.ResolvedPack) error {
	qlpacksRoot := filepath.Join(rw.BundleRoot, "qlpacks")

	rel, err := filepath.Rel(qlpacksRoot, rp.Dir())
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil
	}

	scopeDir := filepath.Join(qlpacksRoot, rp.Manifest.Scope(), rp.Manifest.PackName())

	if err := os.RemoveAll(scopeDir); err != nil {
		return fmt.Errorf("removing installed copy of %s: %w", rp.Manifest.Name, qlerr.ErrIOFailure)
	}

	return nil
}
