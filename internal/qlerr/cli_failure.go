// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package qlerr

import "fmt"

// CLIFailure carries the subcommand and captured stderr of a failed
// invocation of the external analysis CLI.
type CLIFailure struct {
	Subcommand string
	Stderr     string
	err        error
}

// NewCLIFailure wraps ErrCLIFailure with the subcommand and stderr captured
// from a failed external CLI invocation.
func NewCLIFailure(subcommand, stderr string) error {
	return &CLIFailure{
		Subcommand: subcommand,
		Stderr:     stderr,
		err:        ErrCLIFailure,
	}
}

func (e *CLIFailure) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("cli failure: %s", e.Subcommand)
	}

	return fmt.Sprintf("cli failure: %s: %s", e.Subcommand, e.Stderr)
}

func (e *CLIFailure) Unwrap() error {
	return e.err
}
