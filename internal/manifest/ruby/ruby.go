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

// Package ruby updates <pkg>.gemspec and the version.rb fallback chain,
// per spec.md §4.5.
package ruby

import (
	"regexp"

	"github.com/releasaurus/releasaurus/internal/manifest/shared"
	"github.com/releasaurus/releasaurus/internal/types"
)

var gemspecVersionRegex = regexp.MustCompile(`VERSION\s*=\s*(['"])(?P<version>[^'"]*)['"]`)
var versionRbRegex = regexp.MustCompile(`VERSION\s*=\s*(['"])(?P<version>[^'"]*)['"]`)

// Updater implements manifest.Updater for RubyGems-based packages.
type Updater struct{}

// New returns a Ruby manifest Updater.
func New() *Updater { return &Updater{} }

// ManifestTargets returns <pkg>.gemspec plus every version.rb candidate
// location, in fallback order.
func (u *Updater) ManifestTargets(pkgName, workspaceRoot, pkgPath string) []types.ManifestTarget {
	return []types.ManifestTarget{
		{Path: shared.JoinPath(pkgPath, pkgName+".gemspec"), Basename: pkgName + ".gemspec"},
		{Path: shared.JoinPath(pkgPath, "lib", pkgName, "version.rb"), Basename: "version.rb"},
		{Path: shared.JoinPath(pkgPath, "lib", "version.rb"), Basename: "version.rb"},
		{Path: shared.JoinPath(pkgPath, "version.rb"), Basename: "version.rb"},
	}
}

// Update rewrites the gemspec's VERSION constant (if present) and the
// first existing version.rb candidate in fallback order.
func (u *Updater) Update(pkg types.UpdaterPackage, workspacePackages []types.UpdaterPackage) ([]types.FileChange, error) {
	var changes []types.FileChange

	gemspecPath := shared.JoinPath(pkg.Package.Path, pkg.Package.Name+".gemspec")
	if content, ok := pkg.Files[gemspecPath]; ok {
		if updated, changed := shared.ReplaceNamedVersion(content, pkg.NextVersion, gemspecVersionRegex); changed {
			changes = append(changes, types.FileChange{Path: gemspecPath, Content: updated, Kind: types.FileChangeReplace})
		}
	}

	candidates := []string{
		shared.JoinPath(pkg.Package.Path, "lib", pkg.Package.Name, "version.rb"),
		shared.JoinPath(pkg.Package.Path, "lib", "version.rb"),
		shared.JoinPath(pkg.Package.Path, "version.rb"),
	}
	if path, ok := shared.FirstExisting(pkg.Files, candidates...); ok {
		content := pkg.Files[path]
		if updated, changed := shared.ReplaceNamedVersion(content, pkg.NextVersion, versionRbRegex); changed {
			changes = append(changes, types.FileChange{Path: path, Content: updated, Kind: types.FileChangeReplace})
		}
	}

	return changes, nil
}
