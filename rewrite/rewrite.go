// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package rewrite performs the per-kind pack mutations that splice
// workspace packs into a vendor bundle: dependency stripping for
// customization packs, Customizations.qll synthesis for standard
// libraries, and cache/lock cleanup plus recompilation for query packs
// (§4.5). Every mutation runs against a scratch copy; the rewriter never
// touches a pack in place.
package rewrite

import (
	"context"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"qlbundle.sh/codeqlcli"
	"qlbundle.sh/compose"
	"qlbundle.sh/log"
	"qlbundle.sh/pack"
)

// Rewriter applies a composition Plan to a bundle's on-disk tree, compiling
// each pack through cli as it goes.
type Rewriter struct {
	CLI         codeqlcli.CLI
	BundleRoot  string
	ScratchRoot string
	SupportsQlx bool
}

// New binds a Rewriter to the bundle root it will mutate and the scratch
// root it stages copies under.
func New(cli codeqlcli.CLI, bundleRoot, scratchRoot string, supportsQlx bool) *Rewriter {
	return &Rewriter{
		CLI:         cli,
		BundleRoot:  bundleRoot,
		ScratchRoot: scratchRoot,
		SupportsQlx: supportsQlx,
	}
}

// qlpacksDir is the bundle's pack installation root, the target of every
// pack-bundle and pack-create invocation (§4.5).
func (rw *Rewriter) qlpacksDir() string {
	return filepath.Join(rw.BundleRoot, "qlpacks")
}

// Apply rewrites and recompiles every pack in plan.Order, in order. Any
// failure aborts the whole composition; the caller is responsible for
// abandoning the scratch tree (§4.5).
func (rw *Rewriter) Apply(ctx context.Context, plan *compose.Plan) error {
	for _, rp := range plan.Order {
		log.G(ctx).WithFields(logrus.Fields{
			"pack":    rp.Manifest.Name,
			"version": rp.Version().String(),
			"kind":    rp.Kind.String(),
		}).Info("rewrite: processing pack")

		var err error

		switch rp.Kind {
		case pack.Customization:
			err = rw.rewriteCustomization(ctx, rp)

		case pack.Library:
			if custs := plan.Customizations[rp.ID()]; len(custs) > 0 {
				err = rw.rewriteStandardLibrary(ctx, rp, custs)
			} else {
				err = rw.rewriteLibrary(ctx, rp)
			}

		case pack.Query:
			if rp.Manifest.Scope() == "codeql" {
				err = rw.rewriteStandardQuery(ctx, rp)
			} else {
				err = rw.rewriteWorkspaceQuery(ctx, rp)
			}
		}

		if err != nil {
			return err
		}
	}

	return nil
}
