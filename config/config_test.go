// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFromContextReturnsDefaultWhenUnset(t *testing.T) {
	cfg := FromContext(context.Background())
	if cfg.LogLevel != "info" || cfg.Threads != 0 {
		t.Errorf("FromContext with no value set = %+v, want defaults", cfg)
	}
}

func TestWithContextRoundTrips(t *testing.T) {
	want := &Config{LogLevel: "debug", Threads: 4}
	ctx := WithContext(context.Background(), want)

	got := FromContext(ctx)
	if got != want {
		t.Errorf("FromContext = %p, want %p", got, want)
	}
}

func TestLoadEnvOverridesFields(t *testing.T) {
	t.Setenv("QLBUNDLE_LOG_LEVEL", "trace")
	t.Setenv("QLBUNDLE_THREADS", "8")
	t.Setenv("QLBUNDLE_FORCE_DELETE_QLX", "true")

	cfg := Default()
	LoadEnv(cfg)

	if cfg.LogLevel != "trace" {
		t.Errorf("LogLevel = %q, want trace", cfg.LogLevel)
	}
	if cfg.Threads != 8 {
		t.Errorf("Threads = %d, want 8", cfg.Threads)
	}
	if !cfg.ForceDeleteQlx {
		t.Error("ForceDeleteQlx = false, want true")
	}
}

func TestLoadEnvIgnoresUnsetVariables(t *testing.T) {
	cfg := Default()
	LoadEnv(cfg)

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want unchanged default", cfg.LogLevel)
	}
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	cfg := Default()

	if err := LoadFile(cfg, filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Fatalf("LoadFile on missing file: %v", err)
	}
}

func TestLoadFileOverridesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("log_level: warn\nthreads: 2\n"), 0o644); err != nil {
		t.Fatal("WriteFile:", err)
	}

	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatal("LoadFile:", err)
	}

	if cfg.LogLevel != "warn" || cfg.Threads != 2 {
		t.Errorf("LoadFile result = %+v, want log_level=warn threads=2", cfg)
	}
}
