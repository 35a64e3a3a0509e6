// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package codeqlcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"qlbundle.sh/exec"
	"qlbundle.sh/internal/qlerr"
	"qlbundle.sh/log"
	"qlbundle.sh/version"
)

// qlxThreshold is the minimum CLI version that supports compiling packs
// into the qlx precompiled query format (§4.5).
var qlxThreshold = version.MustParse("2.11.4")

// ProcessCLI drives the vendored analysis binary as a subprocess.
type ProcessCLI struct {
	bin     string
	threads int

	mu      sync.Mutex
	cached  *versionOutput
	cacheOK bool
}

var _ CLI = (*ProcessCLI)(nil)

// New binds a ProcessCLI to the CLI binary found at bin. threads is passed
// through to `pack create --threads`; 0 means let the CLI auto-detect.
func New(bin string, threads int) *ProcessCLI {
	return &ProcessCLI{bin: bin, threads: threads}
}

func (c *ProcessCLI) run(ctx context.Context, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	proc, err := exec.NewProcess(c.bin, args,
		exec.WithContext(ctx),
		exec.WithStdout(&stdout),
		exec.WithStderr(&stderr),
		exec.WithLogger(log.G(ctx)),
	)
	if err != nil {
		return nil, err
	}

	if err := proc.StartAndWait(); err != nil {
		return nil, qlerr.NewCLIFailure(strings.Join(args, " "), stderr.String())
	}

	return stdout.Bytes(), nil
}

func (c *ProcessCLI) versionInfo(ctx context.Context) (*versionOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cacheOK {
		return c.cached, nil
	}

	out, err := c.run(ctx, "version", "--format=json")
	if err != nil {
		return nil, err
	}

	var vo versionOutput
	if err := json.Unmarshal(out, &vo); err != nil {
		return nil, fmt.Errorf("parsing version output: %w", qlerr.ErrCLIFailure)
	}

	c.cached = &vo
	c.cacheOK = true

	return c.cached, nil
}

func (c *ProcessCLI) Version(ctx context.Context) (string, error) {
	vo, err := c.versionInfo(ctx)
	if err != nil {
		return "", err
	}

	return vo.Version, nil
}

func (c *ProcessCLI) UnpackedLocation(ctx context.Context) (string, error) {
	vo, err := c.versionInfo(ctx)
	if err != nil {
		return "", err
	}

	return vo.UnpackedLocation, nil
}

func (c *ProcessCLI) SupportsQlx(ctx context.Context) (bool, error) {
	raw, err := c.Version(ctx)
	if err != nil {
		return false, err
	}

	v, err := version.Parse(raw)
	if err != nil {
		return false, fmt.Errorf("parsing CLI version %q: %w", raw, qlerr.ErrCLIFailure)
	}

	return v.AtLeast(qlxThreshold), nil
}

func (c *ProcessCLI) ResolveLanguages(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "resolve", "languages", "--format=json")
	if err != nil {
		return nil, err
	}

	var byLanguage map[string]json.RawMessage
	if err := json.Unmarshal(out, &byLanguage); err != nil {
		return nil, fmt.Errorf("parsing resolve languages output: %w", qlerr.ErrCLIFailure)
	}

	langs := make([]string, 0, len(byLanguage))
	for lang := range byLanguage {
		langs = append(langs, lang)
	}

	return langs, nil
}

func (c *ProcessCLI) PackLs(ctx context.Context, workspace string) ([]PackInfo, error) {
	out, err := c.run(ctx, "pack", "ls", "--format=json", workspace)
	if err != nil {
		return nil, err
	}

	var lsOut packLsOutput
	if err := json.Unmarshal(out, &lsOut); err != nil {
		return nil, fmt.Errorf("parsing pack ls output: %w", qlerr.ErrCLIFailure)
	}

	infos := make([]PackInfo, 0, len(lsOut.Packs))
	for name, path := range lsOut.Packs {
		infos = append(infos, PackInfo{Name: name, Path: path})
	}

	return infos, nil
}

// additionalPacksSeparator is the host-platform separator for a
// colon/semicolon-joined search path, matching the vendored CLI's own
// convention for --additional-packs (§4.5).
func additionalPacksSeparator() string {
	if runtime.GOOS == "windows" {
		return ";"
	}

	return ":"
}

func (c *ProcessCLI) PackBundle(ctx context.Context, packDir, qlpacksDir string, isLibrary bool, additionalPacks ...string) error {
	if !isLibrary {
		return fmt.Errorf("cannot bundle non-library pack at %s: %w", packDir, qlerr.ErrInvalidPack)
	}

	args := []string{"pack", "bundle", "--format=json", fmt.Sprintf("--pack-path=%s", qlpacksDir)}

	if len(additionalPacks) > 0 {
		args = append(args, fmt.Sprintf("--additional-packs=%s", strings.Join(additionalPacks, additionalPacksSeparator())))
	}

	args = append(args, "--", packDir)

	_, err := c.run(ctx, args...)

	return err
}

func (c *ProcessCLI) PackCreate(ctx context.Context, packDir, qlpacksDir string, isLibrary, qlx bool, additionalPacks ...string) error {
	if isLibrary {
		return fmt.Errorf("cannot create non-query pack at %s: %w", packDir, qlerr.ErrInvalidPack)
	}

	args := []string{"pack", "create", "--format=json", fmt.Sprintf("--threads=%d", c.threads), fmt.Sprintf("--output=%s", qlpacksDir)}

	if qlx {
		args = append(args, "--qlx")
	}

	if len(additionalPacks) > 0 {
		args = append(args, fmt.Sprintf("--additional-packs=%s", strings.Join(additionalPacks, additionalPacksSeparator())))
	}

	args = append(args, "--", packDir)

	_, err := c.run(ctx, args...)

	return err
}
