// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"os"
	"strconv"
)

// LoadEnv overrides cfg's fields from QLBUNDLE_-prefixed environment
// variables, a prefix-scan reduced from a reflection-driven struct-tag
// feeder to the handful of fields this config actually has.
func LoadEnv(cfg *Config) {
	if v, ok := os.LookupEnv("QLBUNDLE_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}

	if v, ok := os.LookupEnv("QLBUNDLE_LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}

	if v, ok := os.LookupEnv("QLBUNDLE_THREADS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Threads = n
		}
	}

	if v, ok := os.LookupEnv("QLBUNDLE_FORCE_DELETE_QLX"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ForceDeleteQlx = b
		}
	}
}
