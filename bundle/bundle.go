// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package bundle materializes a vendor analysis bundle into a scratch
// directory, detects which target platforms it supports, and resolves its
// own packs as a seed for composing workspace packs against it (§4.3).
package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"qlbundle.sh/archive"
	"qlbundle.sh/codeqlcli"
	"qlbundle.sh/internal/fsutil"
	"qlbundle.sh/internal/qlerr"
	"qlbundle.sh/log"
	"qlbundle.sh/pack"
	"qlbundle.sh/resolver"
)

// Platform is one of the per-platform tool subtrees a bundle may ship.
type Platform string

const (
	Linux64 Platform = "linux64"
	OSX64   Platform = "osx64"
	Win64   Platform = "win64"
)

// platformSubdirs is the list of per-platform directory names the loader
// probes for under <root>/cpp/tools (§4.3).
var platformSubdirs = []Platform{Linux64, OSX64, Win64}

// cliBinaryName returns the OS-dependent name of the vendored CLI entry
// point at the bundle root.
func cliBinaryName() string {
	if runtime.GOOS == "windows" {
		return "codeql.exe"
	}

	return "codeql"
}

// hostPlatform maps the running GOOS to the bundle's platform naming.
func hostPlatform() (Platform, error) {
	switch runtime.GOOS {
	case "linux":
		return Linux64, nil
	case "darwin":
		return OSX64, nil
	case "windows":
		return Win64, nil
	default:
		return "", fmt.Errorf("unsupported host os %q: %w", runtime.GOOS, qlerr.ErrInvalidBundle)
	}
}

// Bundle is a loaded vendor analysis distribution materialized into a
// scratch directory. It owns the scratch directory, the CLI handle, the
// list of bundle packs, and the set of detected platforms (§3 Ownership).
type Bundle struct {
	ScratchRoot string
	Root        string
	CLI         codeqlcli.CLI
	Languages   []string
	Platforms   map[Platform]bool
	Packs       []pack.Pack
	Resolved    []*pack.ResolvedPack
}

// Load materializes src (a directory or a .tar.gz archive) into a fresh
// scratch directory, detects supported platforms, verifies the CLI runs,
// and resolves every bundle pack as a seed for later composition.
func Load(ctx context.Context, src string, newCLI func(bin string) codeqlcli.CLI) (*Bundle, error) {
	scratchRoot, err := os.MkdirTemp("", "qlbundle-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", qlerr.ErrIOFailure)
	}

	root, err := materialize(src, scratchRoot)
	if err != nil {
		os.RemoveAll(scratchRoot)
		return nil, err
	}

	b := &Bundle{
		ScratchRoot: scratchRoot,
		Root:        root,
		Platforms:   detectPlatforms(root),
	}

	host, err := hostPlatform()
	if err != nil {
		b.Teardown()
		return nil, err
	}

	if !b.Platforms[host] {
		b.Teardown()
		return nil, fmt.Errorf("bundle does not support this host (%s): %w", host, qlerr.ErrInvalidBundle)
	}

	b.CLI = newCLI(filepath.Join(root, cliBinaryName()))

	if _, err := b.CLI.Version(ctx); err != nil {
		b.Teardown()
		return nil, err
	}

	langs, err := b.CLI.ResolveLanguages(ctx)
	if err != nil {
		b.Teardown()
		return nil, err
	}
	b.Languages = langs

	if err := b.loadPacks(ctx); err != nil {
		b.Teardown()
		return nil, err
	}

	log.G(ctx).WithFields(logrus.Fields{
		"root":      root,
		"platforms": b.PlatformNames(),
		"packs":     len(b.Packs),
	}).Debug("bundle: loaded")

	return b, nil
}

func (b *Bundle) loadPacks(ctx context.Context) error {
	infos, err := b.CLI.PackLs(ctx, b.Root)
	if err != nil {
		return err
	}

	packs := make([]pack.Pack, 0, len(infos))
	for _, info := range infos {
		p, err := pack.Load(info.Path)
		if err != nil {
			return fmt.Errorf("loading bundle pack %s: %w", info.Path, err)
		}

		packs = append(packs, p)
	}

	r, err := resolver.New(nil, packs)
	if err != nil {
		return err
	}

	resolved, err := r.ResolveAll(packs)
	if err != nil {
		return err
	}

	b.Packs = packs
	b.Resolved = resolved

	return nil
}

// materialize copies or extracts src into scratchRoot and returns the
// bundle's root directory within it.
func materialize(src, scratchRoot string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src, qlerr.ErrInvalidBundle)
	}

	switch {
	case info.IsDir():
		dst := filepath.Join(scratchRoot, filepath.Base(src))
		if err := fsutil.CopyTree(src, dst); err != nil {
			return "", fmt.Errorf("copying bundle directory: %w", qlerr.ErrIOFailure)
		}

		return dst, nil

	case strings.HasSuffix(src, ".tar.gz"):
		if err := archive.UntarGz(src, scratchRoot); err != nil {
			return "", fmt.Errorf("extracting bundle archive: %w", qlerr.ErrInvalidBundle)
		}

		return singleTopLevelEntry(scratchRoot)

	default:
		return "", fmt.Errorf("bundle path %s is neither a directory nor a .tar.gz archive: %w", src, qlerr.ErrInvalidBundle)
	}
}

func singleTopLevelEntry(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading extracted bundle: %w", qlerr.ErrIOFailure)
	}

	if len(entries) != 1 || !entries[0].IsDir() {
		return "", fmt.Errorf("bundle archive does not have a single top-level directory entry: %w", qlerr.ErrInvalidBundle)
	}

	return filepath.Join(dir, entries[0].Name()), nil
}

func detectPlatforms(root string) map[Platform]bool {
	platforms := make(map[Platform]bool)

	for _, p := range platformSubdirs {
		if info, err := os.Stat(filepath.Join(root, "cpp", "tools", string(p))); err == nil && info.IsDir() {
			platforms[p] = true
		}
	}

	return platforms
}

// PlatformNames returns the bundle's detected platforms as strings, sorted
// for stable logging.
func (b *Bundle) PlatformNames() []string {
	names := make([]string, 0, len(b.Platforms))
	for _, p := range platformSubdirs {
		if b.Platforms[p] {
			names = append(names, string(p))
		}
	}

	return names
}

// Supports reports whether platform p is among the bundle's detected
// platforms.
func (b *Bundle) Supports(p Platform) bool {
	return b.Platforms[p]
}

// Teardown idempotently removes the scratch root.
func (b *Bundle) Teardown() error {
	if b.ScratchRoot == "" {
		return nil
	}

	err := os.RemoveAll(b.ScratchRoot)
	b.ScratchRoot = ""

	return err
}

