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

// Package rust updates Cargo.toml manifests, per spec.md §4.5. go-toml/v2
// dropped the v1 mutable Tree API, so structural questions (is there a
// [package].version? does a dependency carry a path = "..." entry?) are
// answered by decoding, while the actual edit is a targeted regex
// replacement that preserves the rest of the file's formatting.
package rust

import (
	"fmt"
	"regexp"

	"github.com/pelletier/go-toml/v2"
	"github.com/releasaurus/releasaurus/internal/manifest/shared"
	"github.com/releasaurus/releasaurus/internal/types"
)

var (
	packageVersionRegex = regexp.MustCompile(`(?m)^\[package\](?:\r?\n(?:[^\[\r\n].*)?)*?\r?\nversion\s*=\s*"(?P<version>[^"]*)"`)
)

type cargoDoc struct {
	Package *struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
	Dependencies    map[string]any `toml:"dependencies"`
	DevDependencies map[string]any `toml:"dev-dependencies"`
}

// Updater implements manifest.Updater for Cargo-based packages.
type Updater struct{}

// New returns a Rust manifest Updater.
func New() *Updater { return &Updater{} }

// ManifestTargets returns Cargo.toml for the package, plus Cargo.lock at
// the workspace root (regenerated once per workspace, not per package).
func (u *Updater) ManifestTargets(pkgName, workspaceRoot, pkgPath string) []types.ManifestTarget {
	targets := []types.ManifestTarget{
		{Path: shared.JoinPath(pkgPath, "Cargo.toml"), Basename: "Cargo.toml"},
	}
	if shared.JoinPath(workspaceRoot) != shared.JoinPath(pkgPath) {
		targets = append(targets, types.ManifestTarget{
			Path: shared.JoinPath(workspaceRoot, "Cargo.lock"), Basename: "Cargo.lock", IsWorkspace: true,
		})
	}
	return targets
}

// Update rewrites package.version in Cargo.toml, rewrites path-dependency
// versions for any sibling workspace package, and regenerates the
// workspace's Cargo.lock dependency version lines for every sibling.
func (u *Updater) Update(pkg types.UpdaterPackage, workspacePackages []types.UpdaterPackage) ([]types.FileChange, error) {
	var changes []types.FileChange

	cargoPath := shared.JoinPath(pkg.Package.Path, "Cargo.toml")
	if content, ok := pkg.Files[cargoPath]; ok {
		var doc cargoDoc
		if err := toml.Unmarshal([]byte(content), &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", cargoPath, err)
		}
		newContent := content
		if doc.Package != nil && doc.Package.Version != "" {
			updated, changed := shared.ReplaceNamedVersion(newContent, pkg.NextVersion, packageVersionRegex)
			if changed {
				newContent = updated
			}
		}
		for _, sibling := range workspacePackages {
			if sibling.Package.Name == pkg.Package.Name {
				continue
			}
			if hasPathDependency(doc.Dependencies, sibling.Package.Name) || hasPathDependency(doc.DevDependencies, sibling.Package.Name) {
				for _, re := range depVersionRegexes(sibling.Package.Name) {
					updated, changed := shared.ReplaceNamedVersion(newContent, sibling.NextVersion, re)
					if changed {
						newContent = updated
						break
					}
				}
			}
		}
		if newContent != content {
			changes = append(changes, types.FileChange{Path: cargoPath, Content: newContent, Kind: types.FileChangeReplace})
		}
	}

	lockPath := shared.JoinPath(pkg.Package.WorkspaceRoot, "Cargo.lock")
	if content, ok := pkg.Files[lockPath]; ok {
		newContent := content
		for _, sibling := range workspacePackages {
			re := lockPackageVersionRegex(sibling.Package.Name)
			updated, changed := shared.ReplaceNamedVersion(newContent, sibling.NextVersion, re)
			if changed {
				newContent = updated
			}
		}
		if newContent != content {
			changes = append(changes, types.FileChange{Path: lockPath, Content: newContent, Kind: types.FileChangeReplace})
		}
	}

	return changes, nil
}

// hasPathDependency reports whether deps[name] is a table carrying a
// "path" key, the Cargo convention for an intra-workspace dependency.
func hasPathDependency(deps map[string]any, name string) bool {
	entry, ok := deps[name]
	if !ok {
		return false
	}
	table, ok := entry.(map[string]any)
	if !ok {
		return false
	}
	_, hasPath := table["path"]
	return hasPath
}

// depVersionRegexes returns, in try-order, the two shapes a sibling Cargo
// dependency's version can take: a dotted table ([dependencies.name]) or
// an inline table (name = { path = "...", version = "..." }).
func depVersionRegexes(name string) []*regexp.Regexp {
	q := regexp.QuoteMeta(name)
	return []*regexp.Regexp{
		regexp.MustCompile(fmt.Sprintf(`(?m)^\[dependencies\.%s\](?:\r?\n(?:[^\[\r\n].*)?)*?\r?\nversion\s*=\s*"(?P<version>[^"]*)"`, q)),
		regexp.MustCompile(fmt.Sprintf(`%s\s*=\s*\{[^}]*?version\s*=\s*"(?P<version>[^"]*)"`, q)),
	}
}

func lockPackageVersionRegex(name string) *regexp.Regexp {
	pattern := fmt.Sprintf(`(?ms)^name = "%s"\nversion = "(?P<version>[^"]*)"`, regexp.QuoteMeta(name))
	return regexp.MustCompile(pattern)
}
