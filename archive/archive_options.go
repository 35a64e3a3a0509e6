// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package archive

type ArchiveOptions struct {
	stripTimes bool
	gzip       bool
	exclude    func(dst string) bool
}

type ArchiveOption func(*ArchiveOptions) error

// WithExclude supplies a predicate over archive-relative destination paths
// (already joined with the archive prefix). Directories for which it
// returns true are pruned from the walk entirely.
func WithExclude(exclude func(dst string) bool) ArchiveOption {
	return func(ao *ArchiveOptions) error {
		ao.exclude = exclude
		return nil
	}
}

// WithStripTimes indicates that during the archival process that any file times
// should be removed.
func WithStripTimes(stripTimes bool) ArchiveOption {
	return func(ao *ArchiveOptions) error {
		ao.stripTimes = stripTimes
		return nil
	}
}

// WithGzip indicates that when archiving occurs that the resulting artifact
// should be gzip compressed.
func WithGzip(gzip bool) ArchiveOption {
	return func(ao *ArchiveOptions) error {
		ao.gzip = gzip
		return nil
	}
}
