// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package manifest decodes and represents the on-disk manifest of a pack
// (qlpack.yml): its name, version, library flag, dependency constraints,
// and optional extractor.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"qlbundle.sh/version"
)

// PackManifest is the decoded contents of a pack's manifest file.
type PackManifest struct {
	// Name is the pack's scoped ("scope/pack") or bare ("pack") name.
	Name string `yaml:"name"`

	// RawVersion is the version string as written in the manifest.
	RawVersion string `yaml:"version"`

	// Library indicates this pack ships queries for import rather than for
	// direct execution.
	Library bool `yaml:"library,omitempty"`

	// RawDependencies maps a dependency's name to its version constraint
	// expression. Declaration order is not preserved by the YAML decoder, so
	// DependencyOrder records it separately.
	RawDependencies map[string]string `yaml:"dependencies,omitempty"`

	// Extractor optionally names the language extractor this pack targets.
	Extractor string `yaml:"extractor,omitempty"`

	// DependencyOrder preserves declaration order, which invariant 5
	// requires dependencies be processed in.
	DependencyOrder []string `yaml:"-"`
}

// Load reads and parses a manifest file from path.
func Load(path string) (*PackManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read manifest %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes manifest YAML content and recovers declaration order for
// dependencies by re-scanning the raw lines under the "dependencies:" key.
func Parse(data []byte) (*PackManifest, error) {
	m := &PackManifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("could not parse manifest: %w", err)
	}

	m.DependencyOrder = dependencyDeclarationOrder(data, m.RawDependencies)

	return m, nil
}

// Save writes the manifest back out as YAML, used by the rewriter when it
// produces the installation-time view of a pack.
func (m *PackManifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("could not marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write manifest %s: %w", path, err)
	}

	return nil
}

// Clone returns a deep copy so rewrite operations never mutate a manifest
// another ResolvedPack still references for resolution-time lookups.
func (m *PackManifest) Clone() *PackManifest {
	clone := *m

	if m.RawDependencies != nil {
		clone.RawDependencies = make(map[string]string, len(m.RawDependencies))
		for k, v := range m.RawDependencies {
			clone.RawDependencies[k] = v
		}
	}

	clone.DependencyOrder = append([]string(nil), m.DependencyOrder...)

	return &clone
}

// dependencyDeclarationOrder recovers the order dependency keys were
// written in, since gopkg.in/yaml.v2 decodes maps in unspecified order.
func dependencyDeclarationOrder(data []byte, deps map[string]string) []string {
	if len(deps) == 0 {
		return nil
	}

	order := make([]string, 0, len(deps))
	seen := make(map[string]bool, len(deps))

	inBlock := false
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimRight(line, " \t\r")

		if !inBlock {
			if strings.TrimSpace(trimmed) == "dependencies:" {
				inBlock = true
			}
			continue
		}

		if trimmed == "" {
			continue
		}

		if !strings.HasPrefix(trimmed, " ") && !strings.HasPrefix(trimmed, "\t") {
			break
		}

		key := strings.TrimSpace(strings.SplitN(strings.TrimSpace(trimmed), ":", 2)[0])
		if _, ok := deps[key]; ok && !seen[key] {
			order = append(order, key)
			seen[key] = true
		}
	}

	// Fall back to map iteration for any dependency the scan missed (e.g. a
	// flow-style mapping), so no declared dependency is silently dropped.
	for name := range deps {
		if !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}

	return order
}

// Version parses RawVersion into a version.Version.
func (m *PackManifest) Version() (version.Version, error) {
	return version.Parse(m.RawVersion)
}

// Scope returns the part of Name before "/", or "" if Name is bare.
func (m *PackManifest) Scope() string {
	if i := strings.Index(m.Name, "/"); i >= 0 {
		return m.Name[:i]
	}

	return ""
}

// PackName returns the part of Name after "/", or the whole name if bare.
func (m *PackManifest) PackName() string {
	if i := strings.Index(m.Name, "/"); i >= 0 {
		return m.Name[i+1:]
	}

	return m.Name
}

// Dependencies returns the manifest's dependency constraints in declaration
// order.
func (m *PackManifest) Dependencies() ([]Dependency, error) {
	deps := make([]Dependency, 0, len(m.RawDependencies))

	for _, name := range m.DependencyOrder {
		raw, ok := m.RawDependencies[name]
		if !ok {
			continue
		}

		c, err := version.ParseConstraint(raw)
		if err != nil {
			return nil, fmt.Errorf("pack %s: dependency %s: %w", m.Name, name, err)
		}

		deps = append(deps, Dependency{Name: name, Constraint: c})
	}

	return deps, nil
}

// Dependency pairs a dependency name with its version constraint.
type Dependency struct {
	Name       string
	Constraint version.Constraint
}

// ModuleName returns the pack name transformed into a QL module reference:
// '-' becomes '_' and '/' becomes '.', e.g.
// "acme/cpp-queries-customizations" -> "acme.cpp_queries_customizations".
func ModuleName(packName string) string {
	replaced := strings.ReplaceAll(packName, "-", "_")
	return strings.ReplaceAll(replaced, "/", ".")
}

// CustomizationsDir returns the on-disk directory a customization pack's
// Customizations.qll must live under, relative to the manifest's parent
// directory: the pack name with '-' -> '_' and '/' -> the OS path separator.
func CustomizationsDir(packName string) string {
	replaced := strings.ReplaceAll(packName, "-", "_")
	return strings.ReplaceAll(replaced, "/", string(os.PathSeparator))
}
