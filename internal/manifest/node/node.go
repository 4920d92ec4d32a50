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

// Package node updates package.json, package-lock.json, and yarn.lock,
// per spec.md §4.5. package.json/package-lock.json are flat JSON value
// updates handled with encoding/json; yarn.lock has no document model in
// the ecosystem and is edited line-by-line with regex, matching the
// teacher's general preference for regex over a hand-rolled parser for a
// bespoke lockfile format.
package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/releasaurus/releasaurus/internal/manifest/shared"
	"github.com/releasaurus/releasaurus/internal/types"
)

// Updater implements manifest.Updater for npm/yarn-based packages.
type Updater struct{}

// New returns a Node manifest Updater.
func New() *Updater { return &Updater{} }

// ManifestTargets returns package.json, package-lock.json, and yarn.lock
// for the package.
func (u *Updater) ManifestTargets(pkgName, workspaceRoot, pkgPath string) []types.ManifestTarget {
	return []types.ManifestTarget{
		{Path: shared.JoinPath(pkgPath, "package.json"), Basename: "package.json"},
		{Path: shared.JoinPath(pkgPath, "package-lock.json"), Basename: "package-lock.json"},
		{Path: shared.JoinPath(pkgPath, "yarn.lock"), Basename: "yarn.lock"},
	}
}

// Update rewrites package.json's version, its dependency/devDependency
// entries matching sibling packages (skipping workspace:/repo: protocol
// references), package-lock.json's version and node_modules entries, and
// yarn.lock's per-entry version lines.
func (u *Updater) Update(pkg types.UpdaterPackage, workspacePackages []types.UpdaterPackage) ([]types.FileChange, error) {
	var changes []types.FileChange

	pkgJSONPath := shared.JoinPath(pkg.Package.Path, "package.json")
	if content, ok := pkg.Files[pkgJSONPath]; ok {
		updated, changed, err := updatePackageJSON(content, pkg.NextVersion, workspacePackages, pkg.Package.Name)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", pkgJSONPath, err)
		}
		if changed {
			changes = append(changes, types.FileChange{Path: pkgJSONPath, Content: updated, Kind: types.FileChangeReplace})
		}
	}

	lockPath := shared.JoinPath(pkg.Package.Path, "package-lock.json")
	if content, ok := pkg.Files[lockPath]; ok {
		updated, changed, err := updatePackageLockJSON(content, pkg.NextVersion, workspacePackages)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", lockPath, err)
		}
		if changed {
			changes = append(changes, types.FileChange{Path: lockPath, Content: updated, Kind: types.FileChangeReplace})
		}
	}

	yarnPath := shared.JoinPath(pkg.Package.Path, "yarn.lock")
	if content, ok := pkg.Files[yarnPath]; ok {
		updated, changed := updateYarnLock(content, workspacePackages)
		if changed {
			changes = append(changes, types.FileChange{Path: yarnPath, Content: updated, Kind: types.FileChangeReplace})
		}
	}

	return changes, nil
}

func updatePackageJSON(content, nextVersion string, siblings []types.UpdaterPackage, selfName string) (string, bool, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return content, false, err
	}
	if _, isWorkspaceRoot := doc["workspaces"]; isWorkspaceRoot {
		return content, false, nil
	}

	doc["version"] = nextVersion
	changed := true

	for _, field := range []string{"dependencies", "devDependencies"} {
		deps, ok := doc[field].(map[string]any)
		if !ok {
			continue
		}
		for _, sib := range siblings {
			if sib.Package.Name == selfName {
				continue
			}
			current, ok := deps[sib.Package.Name].(string)
			if !ok {
				continue
			}
			if strings.HasPrefix(current, "workspace:") || strings.HasPrefix(current, "repo:") {
				continue
			}
			deps[sib.Package.Name] = "^" + sib.NextVersion
			changed = true
		}
	}
	if !changed {
		return content, false, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return content, false, err
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", true, nil
}

func updatePackageLockJSON(content, nextVersion string, siblings []types.UpdaterPackage) (string, bool, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return content, false, err
	}
	doc["version"] = nextVersion
	changed := true

	if pkgs, ok := doc["packages"].(map[string]any); ok {
		for key, v := range pkgs {
			entry, ok := v.(map[string]any)
			if !ok {
				continue
			}
			for _, sib := range siblings {
				if strings.HasSuffix(key, "node_modules/"+sib.Package.Name) {
					if _, ok := entry["version"]; ok {
						entry["version"] = sib.NextVersion
						changed = true
					}
				}
			}
		}
	}
	if deps, ok := doc["dependencies"].(map[string]any); ok {
		for _, sib := range siblings {
			if entry, ok := deps[sib.Package.Name].(map[string]any); ok {
				if _, ok := entry["version"]; ok {
					entry["version"] = sib.NextVersion
					changed = true
				}
			}
		}
	}

	if !changed {
		return content, false, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return content, false, err
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", true, nil
}

var yarnVersionLineRegex = regexp.MustCompile(`(?m)^(\s*version\s+)"(?P<version>[^"]*)"`)

// updateYarnLock rewrites the "version \"X\"" line immediately following
// each sibling package's header block, skipping headers that reference a
// workspace:/repo: protocol.
func updateYarnLock(content string, siblings []types.UpdaterPackage) (string, bool) {
	lines := strings.Split(content, "\n")
	changed := false
	for _, sib := range siblings {
		for i, line := range lines {
			if !isYarnHeaderFor(line, sib.Package.Name) {
				continue
			}
			if strings.Contains(line, "workspace:") || strings.Contains(line, "repo:") {
				continue
			}
			for j := i + 1; j < len(lines) && j < i+6; j++ {
				updated, ok := shared.ReplaceNamedVersion(lines[j], sib.NextVersion, yarnVersionLineRegex)
				if ok {
					lines[j] = updated
					changed = true
					break
				}
			}
		}
	}
	if !changed {
		return content, false
	}
	return strings.Join(lines, "\n"), true
}

func isYarnHeaderFor(line, name string) bool {
	if !strings.HasSuffix(strings.TrimRight(line, " \t"), ":") {
		return false
	}
	return strings.Contains(line, `"`+name+"@") || strings.HasPrefix(strings.TrimSpace(line), name+"@")
}
