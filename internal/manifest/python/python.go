// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package python updates pyproject.toml (PEP 621 or Poetry), setup.py,
// and setup.cfg, per spec.md §4.5. pyproject.toml structural questions
// (is this Poetry or PEP 621? is the version dynamic?) are answered by
// decoding with go-toml/v2; the edit itself is a targeted regex
// replacement, same approach as internal/manifest/rust.
package python

import (
	"fmt"
	"regexp"

	"github.com/pelletier/go-toml/v2"
	"github.com/releasaurus/releasaurus/internal/manifest/shared"
	"github.com/releasaurus/releasaurus/internal/types"
)

var (
	projectVersionRegex = regexp.MustCompile(`(?m)^\[project\](?:\r?\n(?:[^\[\r\n].*)?)*?\r?\nversion\s*=\s*"(?P<version>[^"]*)"`)
	poetryVersionRegex  = regexp.MustCompile(`(?m)^\[tool\.poetry\](?:\r?\n(?:[^\[\r\n].*)?)*?\r?\nversion\s*=\s*"(?P<version>[^"]*)"`)
	setupPyVersionRegex = regexp.MustCompile(`version\s*=\s*['"](?P<version>[^'"]*)['"]`)
	setupCfgVersionRegex = regexp.MustCompile(`(?m)^\[metadata\](?:\r?\n(?:[^\[\r\n].*)?)*?\r?\nversion\s*=\s*(?P<version>\S+)`)
)

type pyprojectDoc struct {
	Project *struct {
		Version string   `toml:"version"`
		Dynamic []string `toml:"dynamic"`
	} `toml:"project"`
	Tool *struct {
		Poetry *struct {
			Version      string                    `toml:"version"`
			Dependencies map[string]any            `toml:"dependencies"`
			Group        map[string]poetryGroupDeps `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type poetryGroupDeps struct {
	Dependencies map[string]any `toml:"dependencies"`
}

// Updater implements manifest.Updater for pip/Poetry-based packages.
type Updater struct{}

// New returns a Python manifest Updater.
func New() *Updater { return &Updater{} }

// ManifestTargets returns pyproject.toml, setup.py, and setup.cfg for the
// package.
func (u *Updater) ManifestTargets(pkgName, workspaceRoot, pkgPath string) []types.ManifestTarget {
	return []types.ManifestTarget{
		{Path: shared.JoinPath(pkgPath, "pyproject.toml"), Basename: "pyproject.toml"},
		{Path: shared.JoinPath(pkgPath, "setup.py"), Basename: "setup.py"},
		{Path: shared.JoinPath(pkgPath, "setup.cfg"), Basename: "setup.cfg"},
	}
}

// Update rewrites whichever Python manifest files are present.
func (u *Updater) Update(pkg types.UpdaterPackage, workspacePackages []types.UpdaterPackage) ([]types.FileChange, error) {
	var changes []types.FileChange

	pyprojectPath := shared.JoinPath(pkg.Package.Path, "pyproject.toml")
	if content, ok := pkg.Files[pyprojectPath]; ok {
		updated, changed, err := updatePyproject(content, pkg.NextVersion, workspacePackages, pkg.Package.Name)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", pyprojectPath, err)
		}
		if changed {
			changes = append(changes, types.FileChange{Path: pyprojectPath, Content: updated, Kind: types.FileChangeReplace})
		}
	}

	setupPyPath := shared.JoinPath(pkg.Package.Path, "setup.py")
	if content, ok := pkg.Files[setupPyPath]; ok {
		if updated, changed := shared.ReplaceNamedVersion(content, pkg.NextVersion, setupPyVersionRegex); changed {
			changes = append(changes, types.FileChange{Path: setupPyPath, Content: updated, Kind: types.FileChangeReplace})
		}
	}

	setupCfgPath := shared.JoinPath(pkg.Package.Path, "setup.cfg")
	if content, ok := pkg.Files[setupCfgPath]; ok {
		if updated, changed := shared.ReplaceNamedVersion(content, pkg.NextVersion, setupCfgVersionRegex); changed {
			changes = append(changes, types.FileChange{Path: setupCfgPath, Content: updated, Kind: types.FileChangeReplace})
		}
	}

	return changes, nil
}

func updatePyproject(content, nextVersion string, siblings []types.UpdaterPackage, selfName string) (string, bool, error) {
	var doc pyprojectDoc
	if err := toml.Unmarshal([]byte(content), &doc); err != nil {
		return content, false, err
	}

	if doc.Project != nil {
		for _, d := range doc.Project.Dynamic {
			if d == "version" {
				return content, false, nil
			}
		}
	}

	newContent := content
	changed := false

	if doc.Project != nil && doc.Project.Version != "" {
		if updated, ok := shared.ReplaceNamedVersion(newContent, nextVersion, projectVersionRegex); ok {
			newContent = updated
			changed = true
		}
	} else if doc.Tool != nil && doc.Tool.Poetry != nil && doc.Tool.Poetry.Version != "" {
		if updated, ok := shared.ReplaceNamedVersion(newContent, nextVersion, poetryVersionRegex); ok {
			newContent = updated
			changed = true
		}
	}

	if doc.Tool != nil && doc.Tool.Poetry != nil {
		for _, sib := range siblings {
			if sib.Package.Name == selfName {
				continue
			}
			if _, ok := doc.Tool.Poetry.Dependencies[sib.Package.Name]; ok {
				if updated, ok := shared.ReplaceNamedVersion(newContent, sib.NextVersion, poetryDependencyRegex(sib.Package.Name)); ok {
					newContent = updated
					changed = true
				}
			}
			for group, deps := range doc.Tool.Poetry.Group {
				if _, ok := deps.Dependencies[sib.Package.Name]; ok {
					_ = group
					if updated, ok := shared.ReplaceNamedVersion(newContent, sib.NextVersion, poetryDependencyRegex(sib.Package.Name)); ok {
						newContent = updated
						changed = true
					}
				}
			}
		}
	}

	return newContent, changed, nil
}

func poetryDependencyRegex(name string) *regexp.Regexp {
	q := regexp.QuoteMeta(name)
	return regexp.MustCompile(fmt.Sprintf(`(?m)^%s\s*=\s*"(?P<version>[^"]*)"`, q))
}
