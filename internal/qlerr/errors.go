// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package qlerr declares the error kinds raised by the pack composition
// pipeline. Every kind is a sentinel error wrapped with context via
// fmt.Errorf("...: %w", ErrXxx) so callers can branch on errors.Is while
// the message still carries the failing pack, subcommand, or path.
package qlerr

import "errors"

var (
	// ErrCLIFailure is raised when the external analysis CLI exits non-zero.
	ErrCLIFailure = errors.New("cli failure")

	// ErrInvalidBundle is raised when a bundle path is neither a directory
	// nor a .tar.gz, its extracted tree does not match expectations, or the
	// host platform is not among its supported platforms.
	ErrInvalidBundle = errors.New("invalid bundle")

	// ErrResolverFailure is raised for unresolved dependencies, dependency
	// cycles, or transitive self-dependencies.
	ErrResolverFailure = errors.New("resolver failure")

	// ErrInvalidPack is raised when a pack manifest violates an invariant:
	// missing scope, a customization pack with other than one dependency, a
	// standard library missing its language module, or a pack bundled or
	// created as the wrong kind (library vs. query).
	ErrInvalidPack = errors.New("invalid pack")

	// ErrConfigError is raised for malformed wrapper configuration.
	ErrConfigError = errors.New("config error")

	// ErrIOFailure wraps an underlying filesystem error encountered while
	// staging, rewriting, or archiving packs.
	ErrIOFailure = errors.New("io failure")
)

// IsCLIFailure reports whether err (or any error it wraps) is ErrCLIFailure.
func IsCLIFailure(err error) bool { return errors.Is(err, ErrCLIFailure) }

// IsInvalidBundle reports whether err (or any error it wraps) is ErrInvalidBundle.
func IsInvalidBundle(err error) bool { return errors.Is(err, ErrInvalidBundle) }

// IsResolverFailure reports whether err (or any error it wraps) is ErrResolverFailure.
func IsResolverFailure(err error) bool { return errors.Is(err, ErrResolverFailure) }

// IsInvalidPack reports whether err (or any error it wraps) is ErrInvalidPack.
func IsInvalidPack(err error) bool { return errors.Is(err, ErrInvalidPack) }

// IsConfigError reports whether err (or any error it wraps) is ErrConfigError.
func IsConfigError(err error) bool { return errors.Is(err, ErrConfigError) }

// IsIOFailure reports whether err (or any error it wraps) is ErrIOFailure.
func IsIOFailure(err error) bool { return errors.Is(err, ErrIOFailure) }
