// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package codeqlcli

import (
	"context"
	"fmt"
	"path/filepath"

	"qlbundle.sh/internal/fsutil"
	"qlbundle.sh/internal/qlerr"
	"qlbundle.sh/manifest"
	"qlbundle.sh/version"
)

// Fake is a CLI double driven entirely in memory, used by this package's
// own tests and by the bundle, rewrite, and cmd/qlbundle tests so none
// of them need to shell out to a real analysis binary (§9).
type Fake struct {
	FakeVersion          string
	FakeUnpackedLocation string
	FakeLanguages        []string
	FakePacks            []PackInfo

	Bundled []string
	Created []string

	BundleErr error
	CreateErr error
}

var _ CLI = (*Fake)(nil)

func (f *Fake) Version(context.Context) (string, error) {
	return f.FakeVersion, nil
}

func (f *Fake) UnpackedLocation(context.Context) (string, error) {
	return f.FakeUnpackedLocation, nil
}

func (f *Fake) SupportsQlx(ctx context.Context) (bool, error) {
	raw, err := f.Version(ctx)
	if err != nil {
		return false, err
	}

	v, err := version.Parse(raw)
	if err != nil {
		return false, err
	}

	return v.AtLeast(qlxThreshold), nil
}

func (f *Fake) ResolveLanguages(context.Context) ([]string, error) {
	return f.FakeLanguages, nil
}

func (f *Fake) PackLs(context.Context, string) ([]PackInfo, error) {
	return f.FakePacks, nil
}

func (f *Fake) PackBundle(_ context.Context, packDir, qlpacksDir string, isLibrary bool, additionalPacks ...string) error {
	if !isLibrary {
		return fmt.Errorf("cannot bundle non-library pack at %s: %w", packDir, qlerr.ErrInvalidPack)
	}

	if f.BundleErr != nil {
		return f.BundleErr
	}

	f.Bundled = append(f.Bundled, packDir)

	return installFakePack(packDir, qlpacksDir)
}

func (f *Fake) PackCreate(_ context.Context, packDir, qlpacksDir string, isLibrary, qlx bool, additionalPacks ...string) error {
	if isLibrary {
		return fmt.Errorf("cannot create non-query pack at %s: %w", packDir, qlerr.ErrInvalidPack)
	}

	if f.CreateErr != nil {
		return f.CreateErr
	}

	f.Created = append(f.Created, packDir)

	return installFakePack(packDir, qlpacksDir)
}

// installFakePack stands in for the real CLI's install step: it copies
// packDir's tree into qlpacksDir/<scope>/<name>/<version>, the same layout
// the real CLI produces, so callers that re-scan qlpacksDir afterward see a
// consistent result.
func installFakePack(packDir, qlpacksDir string) error {
	m, err := manifest.Load(filepath.Join(packDir, "qlpack.yml"))
	if err != nil {
		return err
	}

	v, err := m.Version()
	if err != nil {
		return err
	}

	dst := filepath.Join(qlpacksDir, m.Scope(), m.PackName(), v.String())

	return fsutil.CopyTree(packDir, dst)
}
