// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package pack defines the Pack, PackKind, and ResolvedPack value types
// used throughout the composition pipeline.
package pack

import (
	"path/filepath"

	"qlbundle.sh/manifest"
)

// Pack is a PackManifest bound to the filesystem path of its manifest file.
// Equality is identity-of-location: two directories with byte-identical
// manifests are still distinct packs.
type Pack struct {
	Manifest *manifest.PackManifest
	Path     string
}

// New binds a decoded manifest to the path it was loaded from.
func New(m *manifest.PackManifest, path string) Pack {
	return Pack{Manifest: m, Path: path}
}

// Load reads and parses the manifest at path and binds it to that path.
func Load(path string) (Pack, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return Pack{}, err
	}

	return New(m, path), nil
}

// Dir returns the pack's root directory, the manifest file's parent.
func (p Pack) Dir() string {
	return filepath.Dir(p.Path)
}

// Identity is a comparable key for use in maps keyed by pack identity
// (location), as distinct from keying by name or name+version.
type Identity struct {
	Path string
}

// ID returns p's identity-of-location key.
func (p Pack) ID() Identity {
	return Identity{Path: p.Path}
}
