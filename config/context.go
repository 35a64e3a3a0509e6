// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import "context"

// contextKey is used to retrieve the configuration from the context.
type contextKey struct{}

// WithContext returns a new context carrying cfg, the same pattern
// log.WithLogger uses for the logger.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the configuration carried in ctx, or Default if none
// was set.
func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(contextKey{}).(*Config)
	if !ok || cfg == nil {
		return Default()
	}

	return cfg
}
