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

// Package generic updates user-specified additional_manifest_files, per
// spec.md §4.5. Each entry is rewritten either by its configured regex or,
// for a yaml_path entry, by walking to that key in the decoded YAML node
// tree. It carries no built-in target list: every file comes from the
// package's resolved config, compiled and validated at config-resolve time.
package generic

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/releasaurus/releasaurus/internal/manifest/shared"
	"github.com/releasaurus/releasaurus/internal/types"
	"gopkg.in/yaml.v3"
)

// Updater implements manifest.Updater for unrecognized/generic release
// types, driven entirely by a package's AdditionalManifestFiles.
type Updater struct{}

// New returns a Generic manifest Updater.
func New() *Updater { return &Updater{} }

// ManifestTargets has no fixed targets of its own; the orchestrator reads
// them from the package's resolved AdditionalManifestFiles instead (see
// Update), since the generic updater's files are entirely user-specified.
func (u *Updater) ManifestTargets(pkgName, workspaceRoot, pkgPath string) []types.ManifestTarget {
	return nil
}

// Update rewrites every configured additional_manifest_file whose
// compiled regex matches the loaded content.
func (u *Updater) Update(pkg types.UpdaterPackage, workspacePackages []types.UpdaterPackage) ([]types.FileChange, error) {
	var changes []types.FileChange
	for _, m := range pkg.Package.AdditionalManifestFiles {
		content, ok := pkg.Files[m.Path]
		if !ok {
			continue
		}
		if m.YAMLPath != "" {
			updated, changed, err := setYAMLVersion(content, m.YAMLPath, pkg.NextVersion)
			if err != nil {
				return nil, fmt.Errorf("updating yaml_path %q in %s: %w", m.YAMLPath, m.Path, err)
			}
			if changed {
				changes = append(changes, types.FileChange{Path: m.Path, Content: updated, Kind: types.FileChangeReplace})
			}
			continue
		}
		re, err := regexp.Compile(m.VersionRegex)
		if err != nil {
			return nil, fmt.Errorf("recompiling validated regex for %s: %w", m.Path, err)
		}
		if updated, changed := shared.ReplaceNamedVersion(content, pkg.NextVersion, re); changed {
			changes = append(changes, types.FileChange{Path: m.Path, Content: updated, Kind: types.FileChangeReplace})
		}
	}
	return changes, nil
}

// setYAMLVersion rewrites the scalar node addressed by a dotted path
// (e.g. "metadata.appVersion") in a YAML document, preserving comments,
// key order, and style by editing the decoded node tree rather than
// re-marshaling the whole document.
func setYAMLVersion(content, path, newVersion string) (string, bool, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return content, false, err
	}
	if len(doc.Content) == 0 {
		return content, false, nil
	}
	node := findYAMLNode(doc.Content[0], strings.Split(path, "."))
	if node == nil || node.Kind != yaml.ScalarNode {
		return content, false, nil
	}
	if node.Value == newVersion {
		return content, false, nil
	}
	node.Value = newVersion
	node.Tag = "!!str"
	node.Style = 0

	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return content, false, err
	}
	enc.Close()
	return buf.String(), true, nil
}

// findYAMLNode walks a mapping node along keys, returning the value node
// at the end of the path, or nil if any segment is missing.
func findYAMLNode(n *yaml.Node, keys []string) *yaml.Node {
	for _, key := range keys {
		if n.Kind != yaml.MappingNode {
			return nil
		}
		var value *yaml.Node
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == key {
				value = n.Content[i+1]
				break
			}
		}
		if value == nil {
			return nil
		}
		n = value
	}
	return n
}
