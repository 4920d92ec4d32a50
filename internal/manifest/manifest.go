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

// Package manifest rewrites a package's version (and, where the format
// supports it, sibling dependency versions) across the manifest formats
// spec.md §4.5 enumerates: Rust, Node, Python, Java, PHP, Ruby, Go, and a
// user-configured Generic fallback.
package manifest

import (
	"strings"

	"github.com/releasaurus/releasaurus/internal/manifest/generic"
	"github.com/releasaurus/releasaurus/internal/manifest/gover"
	"github.com/releasaurus/releasaurus/internal/manifest/java"
	"github.com/releasaurus/releasaurus/internal/manifest/node"
	"github.com/releasaurus/releasaurus/internal/manifest/php"
	"github.com/releasaurus/releasaurus/internal/manifest/python"
	"github.com/releasaurus/releasaurus/internal/manifest/ruby"
	"github.com/releasaurus/releasaurus/internal/manifest/rust"
	"github.com/releasaurus/releasaurus/internal/types"
)

// Updater is the polymorphic contract spec.md §4.5 defines for every
// release-type's manifest handling.
type Updater interface {
	// ManifestTargets enumerates candidate manifest file paths for a
	// package; the orchestrator loads whichever of these exist.
	ManifestTargets(pkgName, workspaceRoot, pkgPath string) []types.ManifestTarget

	// Update rewrites every loaded manifest's version (and sibling
	// dependency versions, where the format records them) and returns the
	// resulting file changes. A nil slice with a nil error means no
	// loaded file matched anything to rewrite.
	Update(pkg types.UpdaterPackage, workspacePackages []types.UpdaterPackage) ([]types.FileChange, error)
}

// ForReleaseType resolves the Updater for a package's configured
// release_type, defaulting to Generic for an empty or unrecognized value.
func ForReleaseType(releaseType string) Updater {
	switch strings.ToLower(releaseType) {
	case "rust":
		return rust.New()
	case "node", "javascript", "typescript":
		return node.New()
	case "python":
		return python.New()
	case "java":
		return java.New()
	case "php":
		return php.New()
	case "ruby":
		return ruby.New()
	case "go", "golang":
		return gover.New()
	default:
		return generic.New()
	}
}

// genericUpdater applies additional_manifest_files regardless of
// release_type, since spec.md §4.5 treats configured generic manifest
// files as an addition on top of the ecosystem-specific updater, not an
// alternative to it.
var genericUpdater = generic.New()

// TargetsFor enumerates every candidate manifest path for a package: its
// ecosystem-specific targets plus any user-configured
// additional_manifest_files.
func TargetsFor(pkg *types.Package) []types.ManifestTarget {
	targets := ForReleaseType(pkg.ReleaseType).ManifestTargets(pkg.Name, pkg.WorkspaceRoot, pkg.Path)
	for _, m := range pkg.AdditionalManifestFiles {
		targets = append(targets, types.ManifestTarget{Path: m.Path, Basename: m.Path})
	}
	return targets
}

// UpdateFor rewrites a package's manifests: its ecosystem-specific update
// plus any configured additional_manifest_files. When release_type is
// itself generic (or unrecognized), the ecosystem updater already covers
// additional_manifest_files, so no second pass is made.
func UpdateFor(pkg types.UpdaterPackage, workspacePackages []types.UpdaterPackage) ([]types.FileChange, error) {
	changes, err := ForReleaseType(pkg.Package.ReleaseType).Update(pkg, workspacePackages)
	if err != nil {
		return nil, err
	}
	if isGenericReleaseType(pkg.Package.ReleaseType) {
		return changes, nil
	}
	extra, err := genericUpdater.Update(pkg, workspacePackages)
	if err != nil {
		return nil, err
	}
	return append(changes, extra...), nil
}

func isGenericReleaseType(releaseType string) bool {
	switch strings.ToLower(releaseType) {
	case "rust", "node", "javascript", "typescript", "python", "java", "php", "ruby", "go", "golang":
		return false
	default:
		return true
	}
}
