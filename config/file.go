// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile overrides cfg's fields from a YAML file at path, a reduced
// read-only half of a feed-and-merge config loader: qlbundle never writes
// its own config back out. A missing file is not an error; qlbundle's
// config is entirely optional.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	return nil
}
