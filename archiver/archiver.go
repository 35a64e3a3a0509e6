// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package archiver writes the composed bundle root out as one or more
// gzip-compressed tarballs, in parallel when multiple platforms are
// requested (§4.6, §5). It never mutates the bundle it reads: rewriting
// and archiving are sequenced so they never overlap.
package archiver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"qlbundle.sh/archive"
	"qlbundle.sh/bundle"
	"qlbundle.sh/internal/qlerr"
)

// archivePrefix is the top-level directory every archive entry is nested
// under, regardless of platform (§4.6).
const archivePrefix = "codeql"

// platformAliases lists every subdirectory name a platform's tools may be
// published under. The exclusion rule in §4.6 treats both spellings of a
// platform as equivalent when deciding what to prune.
var platformAliases = map[bundle.Platform][]string{
	bundle.Linux64: {"linux64", "linux"},
	bundle.OSX64:   {"osx64", "macos"},
	bundle.Win64:   {"win64", "windows"},
}

// Write produces the bundle's output archive(s) at output. With no
// platforms requested it writes a single platform-agnostic archive; with
// one or more platforms it writes one archive per platform concurrently,
// in a worker pool sized to the platform count (§4.6, §5).
func Write(ctx context.Context, b *bundle.Bundle, output string, platforms []bundle.Platform) error {
	if len(platforms) == 0 {
		return writeArchive(ctx, b.Root, filepath.Join(output, "codeql-bundle.tar.gz"), nil)
	}

	for _, p := range platforms {
		if !b.Supports(p) {
			return fmt.Errorf("requested platform %s is not supported by this bundle: %w", p, qlerr.ErrInvalidBundle)
		}
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", output, qlerr.ErrIOFailure)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	for _, p := range platforms {
		eg.Go(func(p bundle.Platform) func() error {
			return func() error {
				out := filepath.Join(output, fmt.Sprintf("codeql-bundle-%s.tar.gz", p))
				exclude := buildExclusions(p, b.Languages)

				return writeArchive(egCtx, b.Root, out, exclude)
			}
		}(p))
	}

	return eg.Wait()
}

// writeArchive tars root into out under archivePrefix, applying exclude if
// non-nil, gzip-compressed.
func writeArchive(ctx context.Context, root, out string, exclude func(dst string) bool) error {
	opts := []archive.ArchiveOption{archive.WithGzip(true)}
	if exclude != nil {
		opts = append(opts, archive.WithExclude(exclude))
	}

	if err := archive.TarDir(ctx, root, archivePrefix, out, opts...); err != nil {
		return fmt.Errorf("archiving %s: %w", out, qlerr.ErrIOFailure)
	}

	return nil
}

// buildExclusions returns the archive-relative path predicate for target,
// implementing every rule of §4.6: pruning non-target platform tool
// subtrees under each detected language's tools directory and the
// top-level tools directory, excluding codeql.exe off Windows, and
// excluding (or partially excluding) the Swift qltest/resource-dir trees.
func buildExclusions(target bundle.Platform, languages []string) func(dst string) bool {
	var prefixes []string

	toolParents := make([]string, 0, len(languages)+1)
	for _, lang := range languages {
		toolParents = append(toolParents, filepath.Join(lang, "tools"))
	}
	toolParents = append(toolParents, "tools")

	for other, aliases := range platformAliases {
		if other == target {
			continue
		}

		for _, parent := range toolParents {
			for _, alias := range aliases {
				prefixes = append(prefixes, filepath.Join(parent, alias))
			}
		}
	}

	if target != bundle.Win64 {
		prefixes = append(prefixes, "codeql.exe")
	}

	switch target {
	case bundle.Win64:
		prefixes = append(prefixes, filepath.Join("swift", "qltest"), filepath.Join("swift", "resource-dir"))
	case bundle.Linux64:
		prefixes = append(prefixes, filepath.Join("swift", "qltest", "osx64"), filepath.Join("swift", "resource-dir", "osx64"))
	case bundle.OSX64:
		prefixes = append(prefixes, filepath.Join("swift", "qltest", "linux64"), filepath.Join("swift", "resource-dir", "linux64"))
	}

	for i, p := range prefixes {
		prefixes[i] = filepath.ToSlash(filepath.Join(archivePrefix, p))
	}

	return func(dst string) bool {
		for _, prefix := range prefixes {
			if dst == prefix || strings.HasPrefix(dst, prefix+"/") {
				return true
			}
		}

		return false
	}
}
