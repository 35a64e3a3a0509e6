// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package rewrite

import (
	"context"
	"fmt"
	"path/filepath"

	"qlbundle.sh/internal/qlerr"
	"qlbundle.sh/pack"
)

// rewriteCustomization strips a customization pack's dependency on its
// target standard library before bundling it, so installing it as a
// dependency of that library does not form a cycle (§4.5, §9).
func (rw *Rewriter) rewriteCustomization(ctx context.Context, rp *pack.ResolvedPack) error {
	copyDir, err := rw.copyToScratch(rp)
	if err != nil {
		return err
	}

	copyManifest := rp.Manifest.Clone()
	copyManifest.RawDependencies = map[string]string{}
	copyManifest.DependencyOrder = nil

	if err := copyManifest.Save(filepath.Join(copyDir, filepath.Base(rp.Path))); err != nil {
		return fmt.Errorf("rewriting %s manifest: %w", rp.Manifest.Name, qlerr.ErrIOFailure)
	}

	return rw.CLI.PackBundle(ctx, copyDir, rw.qlpacksDir(), rp.Manifest.Library)
}
