// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package rewrite

import (
	"context"

	"qlbundle.sh/pack"
)

// rewriteLibrary bundles a plain (non-standard-library, non-customized)
// library pack as-is; no manifest rewrite is needed (§4.5).
func (rw *Rewriter) rewriteLibrary(ctx context.Context, rp *pack.ResolvedPack) error {
	return rw.CLI.PackBundle(ctx, rp.Dir(), rw.qlpacksDir(), rp.Manifest.Library)
}
