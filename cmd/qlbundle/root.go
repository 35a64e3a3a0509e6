// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"qlbundle.sh/archiver"
	"qlbundle.sh/bundle"
	"qlbundle.sh/cmdfactory"
	"qlbundle.sh/codeqlcli"
	"qlbundle.sh/compose"
	"qlbundle.sh/config"
	"qlbundle.sh/internal/qlerr"
	"qlbundle.sh/log"
	"qlbundle.sh/pack"
	"qlbundle.sh/resolver"
	"qlbundle.sh/rewrite"
)

// rootOptions binds every flag of the wrapper CLI (§6). Fields are plain,
// manually-bound pflag values rather than struct-tag-driven, since this
// command tree is one command deep.
type rootOptions struct {
	Bundle             string
	Output             string
	Workspace          string
	NoPrecompile       bool
	LogLevel           string
	LogFormat          string
	Platforms          []string
	CodeScanningConfig string
	ConfigFile         string
	Threads            int
	ForceDeleteQlx     bool
	PlanOnly           bool
	Format             string
}

// New builds the qlbundle command tree.
func New() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "qlbundle --bundle <path> --output <path> [FLAGS] [PACKS...]",
		Short: "Compose workspace query and customization packs into a vendor analysis bundle",
		Long: heredoc.Doc(`
			qlbundle splices workspace query packs, library packs, and
			customization packs into a copy of a vendor analysis bundle, then
			re-archives the result as one gzip-compressed tarball per
			requested platform, or as a single tarball holding every platform
			when no platform is requested.

			It never mutates the input bundle in place: every run materializes
			a fresh scratch copy and tears it down on exit.
		`),
		Example: heredoc.Doc(`
			# Compose every workspace pack into a single archive for all platforms
			$ qlbundle --bundle ./codeql-bundle --output ./out

			# Compose only the named packs, producing per-platform archives
			$ qlbundle --bundle ./codeql-bundle.tar.gz --output ./out \
			    --platform linux64 --platform osx64 acme/cpp-queries

			# Inspect the rewrite order without touching the bundle
			$ qlbundle --bundle ./codeql-bundle --output ./out --plan-only --format=json
		`),
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Bundle, "bundle", "", "Path to the vendor bundle (directory or .tar.gz)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "Output directory for the composed archive(s)")
	cmd.Flags().StringVar(&opts.Workspace, "workspace", "", "Workspace directory or codeql-workspace.yml (default: current directory)")
	cmd.Flags().BoolVar(&opts.NoPrecompile, "no-precompile", false, "Skip compiling query packs into the qlx precompiled format")
	cmd.Flags().StringVar(&opts.LogLevel, "log", "info", "Log level (panic|fatal|error|warning|info|debug|trace)")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", "fancy", "Log output format (quiet|basic|fancy|json)")
	cmd.Flags().StringArrayVar(&opts.Platforms, "platform", nil, "Target platform to archive (linux64|osx64|win64); repeatable, empty means single-archive mode")
	cmd.Flags().StringVar(&opts.CodeScanningConfig, "code-scanning-config", "", "Path to an additional-files config (validated, not installed by this build)")
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "Path to a YAML config file overriding defaults")
	cmd.Flags().IntVar(&opts.Threads, "threads", 0, "Threads passed through to pack create --threads (0 lets the CLI auto-detect)")
	cmd.Flags().BoolVar(&opts.ForceDeleteQlx, "force-delete-qlx", false, "Treat qlx as unsupported rather than aborting when the CLI's version cannot be determined")
	cmd.Flags().BoolVar(&opts.PlanOnly, "plan-only", false, "Resolve and plan the composition without rewriting or archiving anything")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "Output format for --plan-only (text|json)")

	_ = cmd.MarkFlagRequired("bundle")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func run(ctx context.Context, opts *rootOptions, args []string) error {
	cfg := config.Default()
	cfg.LogLevel = opts.LogLevel
	cfg.LogFormat = opts.LogFormat
	cfg.Threads = opts.Threads
	cfg.ForceDeleteQlx = opts.ForceDeleteQlx

	if opts.ConfigFile != "" {
		if err := config.LoadFile(cfg, opts.ConfigFile); err != nil {
			return err
		}
	}

	config.LoadEnv(cfg)

	ctx = log.WithLogger(ctx, newLogger(cfg))
	ctx = config.WithContext(ctx, cfg)

	if opts.CodeScanningConfig != "" {
		if _, err := os.Stat(opts.CodeScanningConfig); err != nil {
			return cmdfactory.FlagErrorWrap(fmt.Errorf("code scanning config %s: %w", opts.CodeScanningConfig, qlerr.ErrConfigError))
		}
	}

	platforms, err := parsePlatforms(opts.Platforms)
	if err != nil {
		return err
	}

	workspace := opts.Workspace
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", qlerr.ErrIOFailure)
		}

		workspace = wd
	}

	b, err := bundle.Load(ctx, opts.Bundle, func(bin string) codeqlcli.CLI {
		return codeqlcli.New(bin, cfg.Threads)
	})
	if err != nil {
		return err
	}
	defer b.Teardown()

	plan, selected, err := buildPlan(ctx, b, workspace, args)
	if err != nil {
		return err
	}

	log.G(ctx).WithField("packs", len(selected)).Info("qlbundle: composition plan ready")

	if opts.PlanOnly {
		return printPlan(plan, opts.Format)
	}

	supportsQlx, err := resolveSupportsQlx(ctx, b, opts.NoPrecompile, cfg.ForceDeleteQlx)
	if err != nil {
		return err
	}

	rw := rewrite.New(b.CLI, b.Root, b.ScratchRoot, supportsQlx)
	if err := rw.Apply(ctx, plan); err != nil {
		return err
	}

	if err := archiver.Write(ctx, b, opts.Output, platforms); err != nil {
		return err
	}

	log.G(ctx).WithFields(logrus.Fields{
		"output":    opts.Output,
		"platforms": len(platforms),
	}).Info("qlbundle: composition complete")

	return nil
}

// newLogger builds a fresh *logrus.Logger from cfg's level/format, ad hoc
// per command rather than wired through a shared factory.
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	if level, ok := log.Levels()[cfg.LogLevel]; ok {
		logger.SetLevel(level)
	}

	switch log.LoggerTypeFromString(cfg.LogFormat) {
	case log.JSON:
		logger.SetFormatter(new(logrus.JSONFormatter))
	case log.BASIC:
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	case log.QUIET:
		if devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0); err == nil {
			logger.SetOutput(devNull)
		}
	default:
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	return logger
}

func parsePlatforms(raw []string) ([]bundle.Platform, error) {
	platforms := make([]bundle.Platform, 0, len(raw))

	for _, r := range raw {
		p := bundle.Platform(r)

		switch p {
		case bundle.Linux64, bundle.OSX64, bundle.Win64:
			platforms = append(platforms, p)
		default:
			return nil, cmdfactory.FlagErrorWrap(fmt.Errorf("unknown platform %q, want linux64, osx64, or win64: %w", r, qlerr.ErrConfigError))
		}
	}

	return platforms, nil
}

// buildPlan discovers workspace packs, filters them by name (PACKS...),
// resolves the filtered selection against the bundle's own packs as a seed
// universe, and computes the rewrite plan over the selection (§4.2-§4.4).
func buildPlan(ctx context.Context, b *bundle.Bundle, workspace string, names []string) (*compose.Plan, []pack.Pack, error) {
	infos, err := b.CLI.PackLs(ctx, workspace)
	if err != nil {
		return nil, nil, err
	}

	wsPacks := make([]pack.Pack, 0, len(infos))
	for _, info := range infos {
		p, err := pack.Load(info.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("loading workspace pack %s: %w", info.Path, err)
		}

		if p.Manifest.Scope() == "" {
			return nil, nil, fmt.Errorf("pack %q does not have the required scope: %w", p.Manifest.Name, qlerr.ErrInvalidPack)
		}

		wsPacks = append(wsPacks, p)
	}

	selected, err := filterPacks(wsPacks, names)
	if err != nil {
		return nil, nil, err
	}

	r, err := resolver.New(b.Resolved, wsPacks)
	if err != nil {
		return nil, nil, err
	}

	resolvedSelection := make([]*pack.ResolvedPack, 0, len(selected))
	for _, p := range selected {
		rp, err := r.Resolve(p)
		if err != nil {
			return nil, nil, err
		}

		resolvedSelection = append(resolvedSelection, rp)
	}

	plan, err := compose.Build(resolvedSelection, b.Resolved)
	if err != nil {
		return nil, nil, err
	}

	return plan, selected, nil
}

func filterPacks(packs []pack.Pack, names []string) ([]pack.Pack, error) {
	if len(names) == 0 {
		return packs, nil
	}

	byName := make(map[string]pack.Pack, len(packs))
	for _, p := range packs {
		byName[p.Manifest.Name] = p
	}

	selected := make([]pack.Pack, 0, len(names))
	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			return nil, cmdfactory.FlagErrorWrap(fmt.Errorf("requested pack %q not found in workspace: %w", name, qlerr.ErrConfigError))
		}

		selected = append(selected, p)
	}

	return selected, nil
}

// resolveSupportsQlx determines whether rewritten query packs should be
// compiled into the qlx precompiled format. noPrecompile always disables
// it; otherwise it follows the CLI's own version threshold unless that
// probe fails and forceDelete opts into treating qlx as unsupported rather
// than aborting (§[AMBIENT] Configuration).
func resolveSupportsQlx(ctx context.Context, b *bundle.Bundle, noPrecompile, forceDelete bool) (bool, error) {
	if noPrecompile {
		return false, nil
	}

	supportsQlx, err := b.CLI.SupportsQlx(ctx)
	if err != nil {
		if forceDelete {
			return false, nil
		}

		return false, err
	}

	return supportsQlx, nil
}

type planPackExport struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Kind    string `json:"kind"`
}

type planExport struct {
	Order          []planPackExport    `json:"order"`
	Customizations map[string][]string `json:"customizations"`
}

func printPlan(plan *compose.Plan, format string) error {
	if format == "json" {
		return printPlanJSON(plan)
	}

	for _, rp := range plan.Order {
		fmt.Printf("%-8s %-40s %s\n", rp.Kind.String(), rp.Manifest.Name, rp.Version().String())
	}

	for target, custs := range plan.Customizations {
		names := make([]string, 0, len(custs))
		for _, c := range custs {
			names = append(names, c.Manifest.Name)
		}

		fmt.Printf("customizes %s: %v\n", targetLabel(plan, target), names)
	}

	return nil
}

func printPlanJSON(plan *compose.Plan) error {
	export := planExport{
		Order:          make([]planPackExport, 0, len(plan.Order)),
		Customizations: make(map[string][]string, len(plan.Customizations)),
	}

	for _, rp := range plan.Order {
		export.Order = append(export.Order, planPackExport{
			Name:    rp.Manifest.Name,
			Version: rp.Version().String(),
			Kind:    rp.Kind.String(),
		})
	}

	for target, custs := range plan.Customizations {
		names := make([]string, 0, len(custs))
		for _, c := range custs {
			names = append(names, c.Manifest.Name)
		}

		export.Customizations[targetLabel(plan, target)] = names
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(export)
}

// targetLabel resolves an Identity key from plan.Customizations back to its
// pack name by scanning Order, since Identity only carries a filesystem
// path.
func targetLabel(plan *compose.Plan, id pack.Identity) string {
	for _, rp := range plan.Order {
		if rp.ID() == id {
			return rp.Manifest.Name
		}
	}

	return id.Path
}
