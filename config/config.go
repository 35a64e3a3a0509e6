// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package config holds the small set of knobs a single qlbundle invocation
// needs: desired log level/format, the subprocess thread count passed
// through to the CLI Adapter, and whether a failed SupportsQlx probe is
// treated as qlx being unsupported instead of aborting the run; in that case
// precompiled qlx files are left in place and packs are created without
// --qlx. There is no
// persistent state across runs, no network configuration, and no signing
// material.
package config

// Config is the resolved configuration for one invocation, seeded from
// flag defaults and overridden by environment variables and, optionally,
// a YAML file (§6).
type Config struct {
	LogLevel       string `yaml:"log_level,omitempty"`
	LogFormat      string `yaml:"log_format,omitempty"`
	Threads        int    `yaml:"threads"`
	ForceDeleteQlx bool   `yaml:"force_delete_qlx,omitempty"`
}

// Default returns the configuration used when no flag, environment
// variable, or file overrides a field.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "fancy",
		Threads:   0,
	}
}
