// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package codeqlcli adapts the vendored analysis CLI binary as a Go
// interface, translating its subcommands into typed calls and its failures
// into qlerr.CLIFailure. It never shells out directly from callers: every
// other package in the composition pipeline depends on the CLI interface,
// not on exec.Process, so it can be faked in tests (§9).
package codeqlcli

import "context"

// CLI is the subset of the vendored analysis binary's subcommands the
// composition pipeline depends on.
type CLI interface {
	// Version reports the CLI's own version, memoized after the first call.
	Version(ctx context.Context) (string, error)

	// UnpackedLocation reports the root directory the CLI was unpacked into.
	UnpackedLocation(ctx context.Context) (string, error)

	// SupportsQlx reports whether this CLI is new enough to compile packs
	// into the qlx precompiled format (§4.5, threshold 2.11.4).
	SupportsQlx(ctx context.Context) (bool, error)

	// ResolveLanguages runs `resolve languages` and lists the extractor
	// languages this CLI ships.
	ResolveLanguages(ctx context.Context) ([]string, error)

	// PackLs lists the packs discoverable from workspace, in no particular
	// order.
	PackLs(ctx context.Context, workspace string) ([]PackInfo, error)

	// PackBundle bundles a single library pack (and any additionalPacks
	// search path entries), installing it under qlpacksDir in the standard
	// <scope>/<name>/<version> layout. isLibrary must be true; it rejects a
	// query pack the same way the vendored CLI itself would.
	PackBundle(ctx context.Context, packDir, qlpacksDir string, isLibrary bool, additionalPacks ...string) error

	// PackCreate compiles a query pack (and any additionalPacks search path
	// entries), installing it under qlpacksDir. If qlx is true, precompiled
	// query caches are produced alongside (requires SupportsQlx). isLibrary
	// must be false; it rejects a library pack the same way the vendored
	// CLI itself would.
	PackCreate(ctx context.Context, packDir, qlpacksDir string, isLibrary, qlx bool, additionalPacks ...string) error
}

// PackInfo is one entry of `pack ls`'s JSON output: a discovered pack's
// declared name and the path to its manifest file.
type PackInfo struct {
	Name string
	Path string
}

type versionOutput struct {
	Version          string `json:"version"`
	UnpackedLocation string `json:"unpackedLocation"`
}

type packLsOutput struct {
	Packs map[string]string `json:"packs"`
}
