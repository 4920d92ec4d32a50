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

// Package gover updates a Go module's version constant, per spec.md §4.5.
// Go modules don't declare a version inside the module itself (go.mod has
// no version field); this targets the common "Version" string constant
// convention instead, tried across its usual locations in order.
package gover

import (
	"regexp"

	"github.com/releasaurus/releasaurus/internal/manifest/shared"
	"github.com/releasaurus/releasaurus/internal/types"
)

var versionConstRegex = regexp.MustCompile(`Version\s*=\s*"(?P<version>[^"]*)"`)

// Updater implements manifest.Updater for Go packages.
type Updater struct{}

// New returns a Go manifest Updater.
func New() *Updater { return &Updater{} }

// ManifestTargets returns every well-known Version-constant file
// location, in fallback order.
func (u *Updater) ManifestTargets(pkgName, workspaceRoot, pkgPath string) []types.ManifestTarget {
	return []types.ManifestTarget{
		{Path: shared.JoinPath(pkgPath, "version.go"), Basename: "version.go"},
		{Path: shared.JoinPath(pkgPath, "version", "version.go"), Basename: "version.go"},
		{Path: shared.JoinPath(pkgPath, "internal", "version.go"), Basename: "version.go"},
		{Path: shared.JoinPath(pkgPath, "internal", "version", "version.go"), Basename: "version.go"},
	}
}

// Update rewrites the first existing Version-constant file's value.
func (u *Updater) Update(pkg types.UpdaterPackage, workspacePackages []types.UpdaterPackage) ([]types.FileChange, error) {
	candidates := []string{
		shared.JoinPath(pkg.Package.Path, "version.go"),
		shared.JoinPath(pkg.Package.Path, "version", "version.go"),
		shared.JoinPath(pkg.Package.Path, "internal", "version.go"),
		shared.JoinPath(pkg.Package.Path, "internal", "version", "version.go"),
	}
	path, ok := shared.FirstExisting(pkg.Files, candidates...)
	if !ok {
		return nil, nil
	}
	updated, changed := shared.ReplaceNamedVersion(pkg.Files[path], pkg.NextVersion, versionConstRegex)
	if !changed {
		return nil, nil
	}
	return []types.FileChange{{Path: path, Content: updated, Kind: types.FileChangeReplace}}, nil
}
